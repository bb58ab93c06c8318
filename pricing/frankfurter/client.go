package frankfurter

import (
	"context"
	"strings"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	Name           = "frankfurter"
	DefaultBaseURL = "https://api.frankfurter.app"
)

// Client is a Frankfurter (ECB reference rates) client
type Client struct {
	http *resty.Client
}

// NewClient creates a new Frankfurter client
func NewClient(opts pricing.Options) *Client {
	return &Client{http: pricing.NewHTTPClient(opts, DefaultBaseURL)}
}

// Name returns the provider name
func (c *Client) Name() string {
	return Name
}

type latestResponse struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// Rates fetches the latest rates from base to all quotes in one request
func (c *Client) Rates(ctx context.Context, base string, quotes []string) (map[string]decimal.Decimal, error) {
	base = pricing.NormalizeCode(base)
	symbols := pricing.NormalizeCodes(quotes)
	if base == "" || len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	var body latestResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("from", base).
		SetQueryParam("to", strings.Join(symbols, ",")).
		SetResult(&body).
		Get("/latest")
	if err := pricing.CheckResponse(Name, resp, err); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		out[pricing.NormalizeCode(code)] = rate
	}
	return out, nil
}
