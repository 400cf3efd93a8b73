// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of analytics service requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, error
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream retries after HTTP 429",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Cascade Engine Metrics
	CascadeSummaries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_summaries_total",
			Help: "Resolved summaries by the source of their tier counts",
		},
		[]string{"source"}, // upstream, local
	)

	CascadeRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_records_skipped_total",
			Help: "Malformed records skipped during aggregation",
		},
	)

	CascadeDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_degraded_responses_total",
			Help: "Responses served without the upstream, by fallback",
		},
		[]string{"fallback"}, // snapshot, mirror, empty
	)

	CascadeThreshold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cascade_threshold_minutes",
			Help: "Active classification thresholds in delay minutes",
		},
		[]string{"quantile"}, // q60, q90
	)

	CascadeThresholdSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_threshold_swaps_total",
			Help: "Threshold publications by source",
		},
		[]string{"source"},
	)

	CascadeReferenceRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_reference_records",
			Help: "Records in the mirrored reference dataset",
		},
	)

	CascadeLastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful reference refresh",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Snapshot Store Metrics
	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_operations_total",
			Help: "Last-known-good store operations",
		},
		[]string{"operation", "result"}, // put/get, ok/miss/error
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one logical upstream call.
func RecordUpstreamRequest(endpoint string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
}

// RecordDBQuery records a DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordSummary counts a resolved summary and its skipped records.
func RecordSummary(source string, skipped int) {
	CascadeSummaries.WithLabelValues(source).Inc()
	if skipped > 0 {
		CascadeRecordsSkipped.Add(float64(skipped))
	}
}

// RecordThresholds publishes the active thresholds.
func RecordThresholds(source string, q60, q90 float64) {
	CascadeThreshold.WithLabelValues("q60").Set(q60)
	CascadeThreshold.WithLabelValues("q90").Set(q90)
	CascadeThresholdSwaps.WithLabelValues(source).Inc()
}

// RecordRefresh marks a successful reference refresh of n records.
func RecordRefresh(n int) {
	CascadeReferenceRecords.Set(float64(n))
	CascadeLastRefresh.Set(float64(time.Now().Unix()))
}
