package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/Oliunekits/price-tracker-bot/internal/services"
	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TrackerRepository is the tracker persistence used by the API
type TrackerRepository interface {
	Create(ctx context.Context, tracker *models.Tracker) error
	Get(ctx context.Context, id uint) (*models.Tracker, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Tracker, error)
	Toggle(ctx context.Context, id uint, ownerID int64) (*models.Tracker, error)
	Delete(ctx context.Context, id uint, ownerID int64) error
}

// PriceLookup resolves the current price of a single pair
type PriceLookup interface {
	Price(ctx context.Context, t models.Tracker) (decimal.Decimal, error)
}

// CreateTrackerRequest represents the body of a tracker creation request
type CreateTrackerRequest struct {
	OwnerID   int64           `json:"owner_id" binding:"required"`
	Kind      string          `json:"kind" binding:"required,oneof=crypto fx"`
	CoinID    string          `json:"coin_id"`
	Base      string          `json:"base" binding:"required"`
	Quote     string          `json:"quote" binding:"required"`
	Direction string          `json:"direction" binding:"required,oneof=gte lte"`
	Target    decimal.Decimal `json:"target"`
}

// TrackerHandler handles tracker management requests
type TrackerHandler struct {
	trackers TrackerRepository
	prices   PriceLookup
	log      *zap.Logger
}

// NewTrackerHandler creates a new tracker handler
func NewTrackerHandler(trackers TrackerRepository, prices PriceLookup, log *zap.Logger) *TrackerHandler {
	return &TrackerHandler{
		trackers: trackers,
		prices:   prices,
		log:      log,
	}
}

// CreateTracker validates the pair against a live price and saves the tracker
func (h *TrackerHandler) CreateTracker(c *gin.Context) {
	var req CreateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tracker := &models.Tracker{
		OwnerID:   req.OwnerID,
		Kind:      models.TrackerKind(req.Kind),
		Base:      req.Base,
		Quote:     req.Quote,
		Direction: models.Direction(req.Direction),
		Target:    req.Target,
	}
	if req.CoinID != "" {
		coinID := req.CoinID
		tracker.CoinID = &coinID
	}
	tracker.Normalize()
	if err := tracker.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := h.prices.Price(c.Request.Context(), *tracker)
	if err != nil {
		h.log.Info("price check for new tracker failed", zap.String("pair", tracker.Pair()), zap.Error(err))
		if errors.Is(err, pricing.ErrDataMissing) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No price available for " + tracker.Pair()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Couldn't fetch the current price, try again later"})
		return
	}

	if err := h.trackers.Create(c.Request.Context(), tracker); err != nil {
		h.log.Error("failed to save tracker", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save tracker"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"tracker":       tracker,
		"current_price": price,
	})
}

// ListTrackers returns the owner's trackers, newest first
func (h *TrackerHandler) ListTrackers(c *gin.Context) {
	ownerID, ok := ownerParam(c, true)
	if !ok {
		return
	}

	trackers, err := h.trackers.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.log.Error("failed to list trackers", zap.Int64("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve trackers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trackers": trackers,
		"total":    len(trackers),
	})
}

// GetTracker retrieves a specific tracker by ID
func (h *TrackerHandler) GetTracker(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerParam(c, false)
	if !ok {
		return
	}

	tracker, err := h.trackers.Get(c.Request.Context(), id)
	if err != nil || (ownerID != 0 && tracker.OwnerID != ownerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tracker not found"})
		return
	}

	c.JSON(http.StatusOK, tracker)
}

// ToggleTracker pauses or resumes a tracker
func (h *TrackerHandler) ToggleTracker(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerParam(c, true)
	if !ok {
		return
	}

	tracker, err := h.trackers.Toggle(c.Request.Context(), id, ownerID)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, tracker)
}

// DeleteTracker removes a tracker
func (h *TrackerHandler) DeleteTracker(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ownerID, ok := ownerParam(c, true)
	if !ok {
		return
	}

	if err := h.trackers.Delete(c.Request.Context(), id, ownerID); err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TrackerHandler) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrTrackerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tracker not found"})
		return
	}
	h.log.Error("tracker store failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tracker"})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tracker ID"})
		return 0, false
	}
	return uint(id), true
}

func ownerParam(c *gin.Context, required bool) (int64, bool) {
	raw := c.Query("owner_id")
	if raw == "" && !required {
		return 0, true
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ownerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id parameter is required"})
		return 0, false
	}
	return ownerID, true
}
