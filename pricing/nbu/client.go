package nbu

import (
	"context"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	Name           = "nbu"
	Anchor         = "UAH"
	DefaultBaseURL = "https://bank.gov.ua/NBUStatService/v1"
)

// Client fetches official hryvnia rates from the National Bank of Ukraine
type Client struct {
	http *resty.Client
}

// NewClient creates a new NBU client
func NewClient(opts pricing.Options) *Client {
	return &Client{http: pricing.NewHTTPClient(opts, DefaultBaseURL)}
}

// Name returns the provider name
func (c *Client) Name() string {
	return Name
}

// Anchor returns the currency every rate is expressed in
func (c *Client) Anchor() string {
	return Anchor
}

type exchangeEntry struct {
	R030         int             `json:"r030"`
	Text         string          `json:"txt"`
	Rate         decimal.Decimal `json:"rate"`
	Code         string          `json:"cc"`
	ExchangeDate string          `json:"exchangedate"`
}

// RateToAnchor returns how many UAH one unit of currency is worth
func (c *Client) RateToAnchor(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := pricing.NormalizeCode(currency)
	if code == Anchor {
		return decimal.NewFromInt(1), nil
	}

	var body []exchangeEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("valcode", code).
		SetQueryParam("json", "").
		SetResult(&body).
		Get("/statdirectory/exchange")
	if err := pricing.CheckResponse(Name, resp, err); err != nil {
		return decimal.Zero, err
	}

	if len(body) == 0 || !body[0].Rate.IsPositive() {
		return decimal.Zero, errors.Wrapf(pricing.ErrDataMissing, "nbu rate for %s", code)
	}
	return body[0].Rate, nil
}
