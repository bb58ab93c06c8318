package pricing

import (
	"time"
)

// Asset identifies a crypto asset for a price query
type Asset struct {
	ID     string `json:"id"`     // provider asset id, e.g. "bitcoin"
	Symbol string `json:"symbol"` // ticker symbol, e.g. "BTC"
}

// CoinSearchResult is one hit of a coin search
type CoinSearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank,omitempty"`
}

// Options carries the settings a provider factory may need
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// QuoteAliases maps a requested quote to the venue's quote,
	// e.g. USD -> USDT for exchanges without fiat books.
	QuoteAliases map[string]string
}

// DefaultTimeout is used when Options.Timeout is zero
const DefaultTimeout = 20 * time.Second

// UserAgent is sent with every outbound provider request
const UserAgent = "price-tracker-bot/1.0"

// TimeoutOrDefault returns the configured timeout or DefaultTimeout
func (o Options) TimeoutOrDefault() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}
