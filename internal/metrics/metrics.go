package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebot_passes_total",
			Help: "Total number of monitoring passes by result",
		},
		[]string{"result"},
	)
	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricebot_pass_duration_seconds",
			Help:    "Duration of monitoring passes",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 50},
		},
	)
	PassesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricebot_passes_skipped_total",
			Help: "Ticks skipped because a pass was still running",
		},
	)
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebot_provider_requests_total",
			Help: "Batched provider requests by provider and result",
		},
		[]string{"provider", "result"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebot_alerts_total",
			Help: "Alert deliveries by result",
		},
		[]string{"result"},
	)
)

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

func init() {
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(PassesSkipped)
	prometheus.MustRegister(ProviderRequests)
	prometheus.MustRegister(AlertsTotal)
}
