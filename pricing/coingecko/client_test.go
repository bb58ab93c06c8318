package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPrices(t *testing.T) {
	var gotIDs, gotVS, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		gotIDs = r.URL.Query().Get("ids")
		gotVS = r.URL.Query().Get("vs_currencies")
		gotKey = r.Header.Get(apiKeyHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":41000.5},"ethereum":{"usd":2200}}`))
	}))
	defer srv.Close()

	client := NewClient(pricing.Options{BaseURL: srv.URL, APIKey: "demo"})
	prices, err := client.Prices(context.Background(), []pricing.Asset{
		{ID: "ethereum"}, {ID: "bitcoin"}, {ID: "Bitcoin"}, {ID: "dogecoin"},
	}, "USD")
	require.NoError(t, err)

	assert.Equal(t, "bitcoin,dogecoin,ethereum", gotIDs)
	assert.Equal(t, "usd", gotVS)
	assert.Equal(t, "demo", gotKey)
	assert.Equal(t, "41000.5", prices["bitcoin"].String())
	assert.Equal(t, "2200", prices["ethereum"].String())
	_, ok := prices["dogecoin"]
	assert.False(t, ok)
}

func TestClientPricesEmptyRequestSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	prices, err := NewClient(pricing.Options{BaseURL: srv.URL}).Prices(context.Background(), nil, "usd")
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.False(t, called)
}

func TestClientPricesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(pricing.Options{BaseURL: srv.URL}).
		Prices(context.Background(), []pricing.Asset{{ID: "bitcoin"}}, "usd")
	require.Error(t, err)
	assert.True(t, pricing.IsUnavailable(err))
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "btc", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"coins":[
			{"id":"bitcoin","name":"Bitcoin","symbol":"btc","market_cap_rank":1},
			{"id":"wrapped-bitcoin","name":"Wrapped Bitcoin","symbol":"wbtc","market_cap_rank":null},
			{"id":"bitcoin-cash","name":"Bitcoin Cash","symbol":"bch","market_cap_rank":20}
		]}`))
	}))
	defer srv.Close()

	coins, err := NewClient(pricing.Options{BaseURL: srv.URL}).Search(context.Background(), " btc ", 2)
	require.NoError(t, err)
	require.Len(t, coins, 2)

	assert.Equal(t, "bitcoin", coins[0].ID)
	assert.Equal(t, "BTC", coins[0].Symbol)
	require.NotNil(t, coins[0].MarketCapRank)
	assert.Equal(t, 1, *coins[0].MarketCapRank)
	assert.Nil(t, coins[1].MarketCapRank)
}

func TestRegistered(t *testing.T) {
	p, err := pricing.NewCrypto(Name, pricing.Options{})
	require.NoError(t, err)
	assert.Equal(t, Name, p.Name())
}
