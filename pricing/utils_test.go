package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCodes(t *testing.T) {
	assert.Equal(t, []string{"EUR", "UAH", "USD"}, NormalizeCodes([]string{"usd", "UAH", " eur", "USD", ""}))
	assert.Empty(t, NormalizeCodes(nil))
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"bitcoin", "ethereum"}, NormalizeIDs([]string{"Ethereum", "bitcoin", "bitcoin ", ""}))
}

func TestReciprocal(t *testing.T) {
	r, err := Reciprocal(decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.25").Equal(r))

	_, err = Reciprocal(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "sentinel", err: ErrProviderUnavailable, want: true},
		{name: "rate limited", err: ErrRateLimited, want: true},
		{name: "provider network code", err: NewProviderError("x", "NETWORK_ERROR", "boom", nil), want: true},
		{name: "missing data", err: ErrDataMissing, want: false},
		{name: "plain", err: errors.New("plain"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}

func TestCheckResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{BaseURL: srv.URL}, "http://unused")

	resp, err := client.R().Get("/ok")
	assert.NoError(t, CheckResponse("test", resp, err))

	resp, err = client.R().Get("/limited")
	err = CheckResponse("test", resp, err)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "RATE_LIMIT", pe.Code)
	assert.True(t, IsUnavailable(err))

	resp, err = client.R().Get("/broken")
	err = CheckResponse("test", resp, err)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "HTTP_ERROR", pe.Code)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCheckResponseNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp, err := NewHTTPClient(Options{BaseURL: url}, "").R().Get("/")
	err = CheckResponse("test", resp, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.True(t, IsUnavailable(err))
}

type denyLimiter struct{ calls int }

func (d *denyLimiter) Allow(ctx context.Context, key string) error {
	d.calls++
	return ErrRateLimited
}

func TestLimitRatesRefusesWithoutCallingProvider(t *testing.T) {
	primary := &MockRateProvider{}
	limiter := &denyLimiter{}

	_, err := LimitRates(primary, limiter).Rates(context.Background(), "EUR", []string{"USD"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, limiter.calls)
	primary.AssertNotCalled(t, "Rates", mock.Anything, mock.Anything, mock.Anything)
}

func TestLimitNilLimiterIsPassthrough(t *testing.T) {
	primary := &MockRateProvider{}
	assert.Same(t, RateProvider(primary), LimitRates(primary, nil))
}

type stubCrypto struct{ name string }

func (s stubCrypto) Name() string { return s.name }

func (s stubCrypto) Prices(ctx context.Context, assets []Asset, quote string) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	RegisterCrypto("stub-test", func(opts Options) (CryptoProvider, error) {
		return stubCrypto{name: "stub-test"}, nil
	})

	p, err := NewCrypto("stub-test", Options{})
	require.NoError(t, err)
	assert.Equal(t, "stub-test", p.Name())
	assert.Contains(t, RegisteredCrypto(), "stub-test")

	_, err = NewCrypto("nope", Options{})
	assert.ErrorIs(t, err, ErrProviderNotFound)
	assert.Contains(t, err.Error(), "stub-test")
}
