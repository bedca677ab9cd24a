package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScoreUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbplat_score_updates_total",
			Help: "Score submissions by update mode and outcome",
		},
		[]string{"mode", "outcome"}, // replace|increment|best , ok|error
	)

	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbplat_rate_limit_decisions_total",
			Help: "Gateway rate-limit decisions by plan and outcome",
		},
		[]string{"plan", "decision"}, // allowed|denied
	)

	AuthCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbplat_auth_cache_total",
			Help: "API key validation lookups by cache outcome",
		},
		[]string{"outcome"}, // hit|miss
	)

	WorkerLagSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lbplat_worker_event_lag_seconds",
			Help:    "Time between event publish and Worker projection, by subject",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lbplat_http_requests_total",
			Help: "Gateway requests by route and status class",
		},
		[]string{"route", "status_class"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		ScoreUpdatesTotal,
		RateLimitDecisionsTotal,
		AuthCacheTotal,
		WorkerLagSeconds,
		HTTPRequestsTotal,
	)
}
