package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogRequests TMDB 调用次数，outcome: ok / default / rejected
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodreel_catalog_requests_total",
			Help: "Total number of catalog API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodreel_catalog_request_duration_seconds",
			Help:    "Duration of catalog API calls in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodreel_catalog_cache_hits_total",
			Help: "Catalog responses served from the in-process cache",
		},
	)

	// Recommendations 推荐请求，outcome: ok / empty / error / fallback
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodreel_recommendations_total",
			Help: "Recommendation requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	MoodVariant = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodreel_mood_variant_total",
			Help: "Which discovery variant answered a mood request (0 = popular fallback)",
		},
		[]string{"variant"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodreel_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moodreel_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ArtifactLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodreel_artifact_loads_total",
			Help: "Model artifact load attempts by artifact and outcome",
		},
		[]string{"artifact", "outcome"},
	)
)
