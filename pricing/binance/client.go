package binance

import (
	"context"
	"strings"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const Name = "binance"

// DefaultQuoteAliases maps fiat quotes to the stablecoin books Binance lists
var DefaultQuoteAliases = map[string]string{
	"USD": "USDT",
}

// Client serves crypto spot prices from Binance public ticker data
type Client struct {
	client  *binance.Client
	aliases map[string]string
}

// NewClient creates a new Binance spot price client; no credentials are needed for tickers
func NewClient(opts pricing.Options) *Client {
	c := binance.NewClient("", "")
	if opts.BaseURL != "" {
		c.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	c.HTTPClient.Timeout = opts.TimeoutOrDefault()

	aliases := make(map[string]string, len(DefaultQuoteAliases)+len(opts.QuoteAliases))
	for k, v := range DefaultQuoteAliases {
		aliases[k] = v
	}
	for k, v := range opts.QuoteAliases {
		aliases[pricing.NormalizeCode(k)] = pricing.NormalizeCode(v)
	}

	return &Client{
		client:  c,
		aliases: aliases,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return Name
}

// Symbol returns the Binance market symbol for an asset against quote, e.g. BTCUSDT
func (c *Client) Symbol(asset pricing.Asset, quote string) string {
	q := pricing.NormalizeCode(quote)
	if alias, ok := c.aliases[q]; ok {
		q = alias
	}
	return strings.ToUpper(strings.TrimSpace(asset.Symbol)) + q
}

// Prices fetches the full ticker list in a single call and picks the requested
// symbols from it. Unlisted symbols are absent from the result.
func (c *Client) Prices(ctx context.Context, assets []pricing.Asset, quote string) (map[string]decimal.Decimal, error) {
	idsBySymbol := make(map[string][]string)
	for _, asset := range assets {
		if asset.Symbol == "" || asset.ID == "" {
			continue
		}
		symbol := c.Symbol(asset, quote)
		idsBySymbol[symbol] = append(idsBySymbol[symbol], asset.ID)
	}
	if len(idsBySymbol) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	tickers, err := c.client.NewListPricesService().Do(ctx)
	if err != nil {
		if common.IsAPIError(err) {
			return nil, pricing.NewProviderError(Name, "HTTP_ERROR", "ticker request rejected", err)
		}
		return nil, pricing.NewProviderError(Name, "NETWORK_ERROR", "ticker request failed", err)
	}

	out := make(map[string]decimal.Decimal, len(assets))
	for _, ticker := range tickers {
		ids, wanted := idsBySymbol[ticker.Symbol]
		if !wanted {
			continue
		}
		price, err := decimal.NewFromString(ticker.Price)
		if err != nil {
			continue
		}
		for _, id := range ids {
			out[id] = price
		}
	}
	return out, nil
}

// Register the Binance provider
func init() {
	pricing.RegisterCrypto(Name, func(opts pricing.Options) (pricing.CryptoProvider, error) {
		return NewClient(opts), nil
	})
}
