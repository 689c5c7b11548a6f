package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_requests_total",
			Help: "Total number of discovery queries by outcome",
		},
		[]string{"status"},
	)

	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_swipes_total",
			Help: "Total number of recorded swipes by action",
		},
		[]string{"action"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_matches_total",
			Help: "Total number of mutual matches created",
		},
	)

	tempSkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_temp_skips_total",
			Help: "Total number of temporary skips recorded",
		},
	)

	boostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_boosts_total",
			Help: "Total number of boost activations",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_request_duration_seconds",
			Help:    "Handler latency for discovery engine endpoints",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func ObserveDiscovery(status string) {
	discoveryRequestsTotal.WithLabelValues(status).Inc()
}

func RecordSwipe(action string) {
	swipesTotal.WithLabelValues(action).Inc()
}

func RecordMatch() {
	matchesTotal.Inc()
}

func RecordTempSkip() {
	tempSkipsTotal.Inc()
}

func RecordBoost() {
	boostsTotal.Inc()
}

func ObserveRequestDuration(endpoint string, seconds float64) {
	requestDuration.WithLabelValues(endpoint).Observe(seconds)
}
