package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engagement service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Event log metrics
	EventsRecordedTotal *prometheus.CounterVec
	StoreQueryDuration  *prometheus.HistogramVec
	StoreErrorsTotal    *prometheus.CounterVec

	// Aggregation metrics
	AggregationDuration *prometheus.HistogramVec
	TargetFailuresTotal *prometheus.CounterVec
	AccumulatorTargets  *prometheus.GaugeVec

	// Trending cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheErrorsTotal *prometheus.CounterVec

	// Feed metrics
	FeedGenerationTime *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			EventsRecordedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_events_recorded_total",
					Help: "Total number of events appended to the log",
				},
				[]string{"event_type"},
			),
			StoreQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "engagement_store_query_duration_seconds",
					Help:    "Event store query latency in seconds",
					Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"operation"},
			),
			StoreErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_store_errors_total",
					Help: "Total number of failed event store calls",
				},
				[]string{"operation", "code"},
			),

			AggregationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "engagement_aggregation_duration_seconds",
					Help:    "Time spent computing metrics and scores",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"operation"},
			),
			TargetFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engagement_target_failures_total",
					Help: "Per-target failures isolated inside batch computations",
				},
				[]string{"operation"},
			),
			AccumulatorTargets: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "engagement_accumulator_targets",
					Help: "Targets tracked by the incremental score accumulator",
				},
				[]string{"target_type"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache"},
			),
			CacheErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_errors_total",
					Help: "Total number of cache errors",
				},
				[]string{"cache"},
			),

			FeedGenerationTime: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_generation_duration_seconds",
					Help:    "Time to generate feed in seconds",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"feed_type"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
