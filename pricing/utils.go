package pricing

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// NormalizeCode uppercases and trims a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCodes uppercases, deduplicates and sorts currency codes, dropping empty ones
func NormalizeCodes(codes []string) []string {
	out := lo.Uniq(lo.FilterMap(codes, func(c string, _ int) (string, bool) {
		c = NormalizeCode(c)
		return c, c != ""
	}))
	sort.Strings(out)
	return out
}

// NormalizeIDs lowercases, deduplicates and sorts provider asset ids
func NormalizeIDs(ids []string) []string {
	out := lo.Uniq(lo.FilterMap(ids, func(id string, _ int) (string, bool) {
		id = strings.ToLower(strings.TrimSpace(id))
		return id, id != ""
	}))
	sort.Strings(out)
	return out
}

// Reciprocal returns 1/rate, rejecting non-positive rates
func Reciprocal(rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return decimal.NewFromInt(1).Div(rate), nil
}

// NewHTTPClient returns a resty client configured the same way for every provider
func NewHTTPClient(opts Options, defaultBaseURL string) *resty.Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(opts.TimeoutOrDefault()).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json")
}

// CheckResponse maps a resty round trip to the pricing error taxonomy
func CheckResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return NewProviderError(provider, "NETWORK_ERROR", "request failed", wrapUnavailable(err))
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return NewProviderError(provider, "RATE_LIMIT", resp.Status(), ErrProviderUnavailable)
	case resp.IsError():
		return NewProviderError(provider, "HTTP_ERROR",
			strings.TrimSpace(resp.Status()+" "+truncate(resp.String(), 200)), ErrProviderUnavailable)
	}

	return nil
}

type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string { return e.err.Error() }

func (e *unavailableError) Unwrap() []error { return []error{ErrProviderUnavailable, e.err} }

func wrapUnavailable(err error) error {
	return &unavailableError{err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
