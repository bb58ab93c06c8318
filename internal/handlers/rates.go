package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CoinSearcher finds crypto assets by name or symbol
type CoinSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]pricing.CoinSearchResult, error)
}

// DefaultSearchLimit is the number of coins returned when no limit is given
const DefaultSearchLimit = 5

// RatesHandler serves one-off rate lookups and coin search
type RatesHandler struct {
	prices PriceLookup
	coins  CoinSearcher
	log    *zap.Logger
}

// NewRatesHandler creates a new rates handler
func NewRatesHandler(prices PriceLookup, coins CoinSearcher, log *zap.Logger) *RatesHandler {
	return &RatesHandler{
		prices: prices,
		coins:  coins,
		log:    log,
	}
}

// GetRate returns the current price of an fx pair or crypto asset
func (h *RatesHandler) GetRate(c *gin.Context) {
	kind := models.TrackerKind(c.DefaultQuery("kind", string(models.TrackerKindFX)))

	quote, err := models.NormalizeCurrency(c.Query("quote"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	probe := models.Tracker{Kind: kind, Quote: quote}
	switch kind {
	case models.TrackerKindFX:
		base, err := models.NormalizeCurrency(c.Query("base"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		probe.Base = base
	case models.TrackerKindCrypto:
		// exchange providers price by ticker symbol, so both ids are needed
		coinID, symbol := c.Query("coin_id"), c.Query("symbol")
		if coinID == "" || symbol == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coin_id and symbol parameters are required"})
			return
		}
		probe.CoinID = &coinID
		probe.Base = symbol
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be crypto or fx"})
		return
	}
	probe.Normalize()

	price, err := h.prices.Price(c.Request.Context(), probe)
	if err != nil {
		if errors.Is(err, pricing.ErrDataMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No rate available for " + probe.Pair()})
			return
		}
		h.log.Warn("rate lookup failed", zap.String("pair", probe.Pair()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Couldn't fetch the rate, try again later"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":  kind,
		"pair":  probe.Pair(),
		"price": price,
	})
}

// SearchCoins returns the best matching coins for a query
func (h *RatesHandler) SearchCoins(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultSearchLimit)))
	if err != nil || limit < 1 || limit > 25 {
		limit = DefaultSearchLimit
	}

	coins, err := h.coins.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.log.Warn("coin search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Coin search is unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coins": coins,
		"total": len(coins),
	})
}
