package handlers

import (
	"context"
	"net/http"

	"github.com/Oliunekits/price-tracker-bot/internal/services"
	"github.com/gin-gonic/gin"
)

// PassTrigger starts and reports monitoring passes
type PassTrigger interface {
	TriggerNow(ctx context.Context) bool
	Running() bool
	LastPass() (services.PassReport, bool)
}

// ChecksHandler exposes manual pass control
type ChecksHandler struct {
	scheduler PassTrigger
}

// NewChecksHandler creates a new checks handler
func NewChecksHandler(scheduler PassTrigger) *ChecksHandler {
	return &ChecksHandler{scheduler: scheduler}
}

// RunCheck starts a pass unless one is already running
func (h *ChecksHandler) RunCheck(c *gin.Context) {
	if !h.scheduler.TriggerNow(c.Request.Context()) {
		c.JSON(http.StatusConflict, gin.H{"error": "A price check is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Price check started"})
}

// CheckStatus returns the running flag and the last pass report
func (h *ChecksHandler) CheckStatus(c *gin.Context) {
	resp := gin.H{"running": h.scheduler.Running()}
	if last, ok := h.scheduler.LastPass(); ok {
		resp["last_pass"] = last
	}
	c.JSON(http.StatusOK, resp)
}
