package routes

import (
	"net/http"

	"github.com/Oliunekits/price-tracker-bot/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles every HTTP handler the router serves
type Handlers struct {
	Trackers *handlers.TrackerHandler
	Rates    *handlers.RatesHandler
	Checks   *handlers.ChecksHandler
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, h Handlers) {
	// API routes
	api := r.Group("/api/v1")
	{
		trackers := api.Group("/trackers")
		{
			trackers.POST("", h.Trackers.CreateTracker)
			trackers.GET("", h.Trackers.ListTrackers)
			trackers.GET("/:id", h.Trackers.GetTracker)
			trackers.POST("/:id/toggle", h.Trackers.ToggleTracker)
			trackers.DELETE("/:id", h.Trackers.DeleteTracker)
		}

		api.GET("/rates", h.Rates.GetRate)
		api.GET("/coins/search", h.Rates.SearchCoins)

		checks := api.Group("/checks")
		{
			checks.POST("/run", h.Checks.RunCheck)
			checks.GET("/status", h.Checks.CheckStatus)
		}
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "price-tracker-bot",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Price Tracker Bot",
			"version": "1.0.0",
			"endpoints": gin.H{
				"trackers": "/api/v1/trackers",
				"rates":    "/api/v1/rates",
				"checks":   "/api/v1/checks/status",
				"health":   "/health",
				"metrics":  "/metrics",
			},
		})
	})
}
