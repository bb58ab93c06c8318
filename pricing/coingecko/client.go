package coingecko

import (
	"context"
	"strings"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	Name           = "coingecko"
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	apiKeyHeader = "x-cg-demo-api-key"
)

// Client is a CoinGecko public API client
type Client struct {
	http *resty.Client
}

// NewClient creates a new CoinGecko client
func NewClient(opts pricing.Options) *Client {
	http := pricing.NewHTTPClient(opts, DefaultBaseURL)
	if opts.APIKey != "" {
		http.SetHeader(apiKeyHeader, opts.APIKey)
	}
	return &Client{http: http}
}

// Name returns the provider name
func (c *Client) Name() string {
	return Name
}

// Prices fetches spot prices for all assets against one quote in a single request
func (c *Client) Prices(ctx context.Context, assets []pricing.Asset, quote string) (map[string]decimal.Decimal, error) {
	ids := pricing.NormalizeIDs(lo.Map(assets, func(a pricing.Asset, _ int) string { return a.ID }))
	vs := strings.ToLower(strings.TrimSpace(quote))
	if len(ids) == 0 || vs == "" {
		return map[string]decimal.Decimal{}, nil
	}

	// {"bitcoin": {"usd": 41000.5}, ...}
	var body map[string]map[string]decimal.Decimal
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", vs).
		SetResult(&body).
		Get("/simple/price")
	if err := pricing.CheckResponse(Name, resp, err); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if price, ok := body[id][vs]; ok {
			out[id] = price
		}
	}
	return out, nil
}

type searchResponse struct {
	Coins []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		MarketCapRank *int   `json:"market_cap_rank"`
	} `json:"coins"`
}

// Search looks up coins by name or symbol and returns at most limit hits
func (c *Client) Search(ctx context.Context, query string, limit int) ([]pricing.CoinSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var body searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetResult(&body).
		Get("/search")
	if err := pricing.CheckResponse(Name, resp, err); err != nil {
		return nil, err
	}

	coins := body.Coins
	if limit > 0 && len(coins) > limit {
		coins = coins[:limit]
	}

	out := make([]pricing.CoinSearchResult, 0, len(coins))
	for _, coin := range coins {
		out = append(out, pricing.CoinSearchResult{
			ID:            coin.ID,
			Name:          coin.Name,
			Symbol:        strings.ToUpper(coin.Symbol),
			MarketCapRank: coin.MarketCapRank,
		})
	}
	return out, nil
}

// Register the CoinGecko provider
func init() {
	pricing.RegisterCrypto(Name, func(opts pricing.Options) (pricing.CryptoProvider, error) {
		return NewClient(opts), nil
	})
}
