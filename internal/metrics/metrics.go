// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document store
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "essence_db_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "operation", "collection"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_db_operation_errors_total",
			Help: "Document store operations that returned an error other than not found",
		},
		[]string{"engine", "operation", "collection"},
	)

	DBVersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_db_version_conflicts_total",
			Help: "Replace operations rejected because the stored version changed",
		},
		[]string{"collection"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "essence_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "essence_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_api_rate_limit_hits_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)

	// TTL cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_cache_hits_total",
			Help: "GetOrCompute calls served from the cache",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_cache_misses_total",
			Help: "GetOrCompute calls that ran the compute function",
		},
		[]string{"namespace"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "essence_cache_entries",
			Help: "Current number of cached entries",
		},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_cache_invalidated_entries_total",
			Help: "Entries removed by prefix invalidation",
		},
		[]string{"prefix"},
	)

	// Scheduler
	TaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_task_runs_total",
			Help: "Periodic task invocations by outcome",
		},
		[]string{"task", "outcome"}, // success, error, panic
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "essence_task_duration_seconds",
			Help:    "Duration of periodic task invocations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"task"},
	)

	TaskLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "essence_task_last_success_timestamp",
			Help: "Unix time of the last successful run",
		},
		[]string{"task"},
	)

	// Product flags
	FlagChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_product_flag_changes_total",
			Help: "Products whose flag was set or cleared by recomputation",
		},
		[]string{"flag", "direction"}, // set, cleared
	)

	// Shop
	OrdersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "essence_orders_placed_total",
			Help: "Orders created through checkout",
		},
	)

	OrderStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_order_status_transitions_total",
			Help: "Order status changes",
		},
		[]string{"to"},
	)

	// Audit trail
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_audit_events_total",
			Help: "Audit events written by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "essence_audit_events_dropped_total",
			Help: "Audit events dropped because the write buffer was full",
		},
	)

	// Mail and circuit breaker
	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_mail_sent_total",
			Help: "Outbound mail attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "essence_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "essence_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordDBOperation records the duration of a store call. Errors are counted
// unless notFound reports them as an expected miss.
func RecordDBOperation(engine, operation, collection string, duration time.Duration, err error, notFound func(error) bool) {
	DBOperationDuration.WithLabelValues(engine, operation, collection).Observe(duration.Seconds())
	if err != nil && (notFound == nil || !notFound(err)) {
		DBOperationErrors.WithLabelValues(engine, operation, collection).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTaskRun records one periodic task invocation.
func RecordTaskRun(task, outcome string, duration time.Duration, finished time.Time) {
	TaskRuns.WithLabelValues(task, outcome).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
	if outcome == "success" {
		TaskLastSuccess.WithLabelValues(task).Set(float64(finished.Unix()))
	}
}
