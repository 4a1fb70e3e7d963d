package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the redirect server. promauto registers each
// metric with the default registry, exposed on /metrics.

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration tracks the duration of HTTP requests.
	// Histogram buckets allow percentile queries (P50, P95, P99).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsTotal counts total HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsInFlight tracks currently processing requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== CLICK VALIDATION METRICS ====================

	// ClickVerdictsTotal counts filter-chain outcomes by reason code.
	// Accepted clicks and each rejection reason get their own series.
	ClickVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_verdicts_total",
			Help: "Total number of clicks by filter chain verdict",
		},
		[]string{"verdict"},
	)

	// InvalidRequestsTotal counts requests rejected before the filter
	// chain runs (non-GET methods).
	InvalidRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invalid_requests_total",
			Help: "Total number of requests rejected for an invalid method",
		},
	)

	// ==================== REDIRECT METRICS ====================

	// RedirectsTotal counts successful 301 responses.
	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)

	// RedirectResolutionDuration tracks identifier-to-URL lookup time.
	RedirectResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redirect_resolution_duration_seconds",
			Help:    "Duration of redirect target resolution in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// UnknownIdentifiersTotal counts accepted clicks whose identifier
	// had no servable target.
	UnknownIdentifiersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unknown_identifiers_total",
			Help: "Total number of accepted clicks with no redirect target",
		},
	)

	// ==================== STORE METRICS ====================

	// StoreErrorsTotal counts transient persistent-store failures.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of persistent store errors",
		},
		[]string{"operation"},
	)

	// ==================== CACHE METRICS ====================

	// CacheHitsTotal counts cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal counts cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheOperationDuration tracks cache operation latency.
	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"},
	)
)

// RecordVerdict increments the counter for a filter-chain outcome.
func RecordVerdict(verdict string) {
	ClickVerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordInvalidRequest increments the invalid-method counter.
func RecordInvalidRequest() {
	InvalidRequestsTotal.Inc()
}

// RecordRedirect increments the successful redirect counter.
func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordUnknownIdentifier increments the no-target counter.
func RecordUnknownIdentifier() {
	UnknownIdentifiersTotal.Inc()
}

// RecordStoreError increments the store failure counter for an
// operation (redirect_lookup, log_write, blacklist_load, ...).
func RecordStoreError(operation string) {
	StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}
