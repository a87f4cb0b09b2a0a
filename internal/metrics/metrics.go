// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
		[]string{"operation", "table", "error_type"},
	)

	// API Metrics
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
			Help:    "API request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_pipeline_runs_total",
			Help: "Total number of recommendation runs by outcome",
		},
		[]string{"outcome"}, // ready, not_ready, busy, failed
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_pipeline_run_duration_seconds",
			Help:    "Duration of complete recommendation runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	PluginInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_plugin_invocations_total",
			Help: "Total number of plugin invocations",
		},
		[]string{"plugin", "stage"},
	)

	PluginErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_plugin_errors_total",
			Help: "Total number of failed or panicking plugin invocations",
		},
		[]string{"plugin", "stage", "kind"}, // kind: error, panic
	)

	PluginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_plugin_duration_seconds",
			Help:    "Duration of plugin invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"plugin", "stage"},
	)

	CandidatesGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidates_per_run",
			Help:    "Number of candidates surviving generation and alteration",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RecommendationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_published_total",
			Help: "Total number of recommendations written to the flag sink",
		},
	)

	QueueBatchUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_queue_users_total",
			Help: "Users handled by the queue driver by result",
		},
		[]string{"result"}, // processed, deferred, failed, removed, skipped, busy
	)

	QueueBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_queue_batch_duration_seconds",
			Help:    "Duration of queue processing batches",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	StatusesMarkedStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_statuses_marked_stale_total",
			Help: "Total number of READY statuses moved to STALE",
		},
	)

	HistoryPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_history_purged_total",
			Help: "Total number of history rows removed by retention",
		},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_events_published_total",
			Help: "Total number of events handed to the message publisher",
		},
		[]string{"topic", "result"},
	)

	// Flag Store Metrics
	FlagStoreGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flag_store_gc_runs_total",
			Help: "Total number of flag store value log garbage collections",
		},
	)

	FlagStoreGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flag_store_gc_duration_seconds",
			Help:    "Duration of flag store value log garbage collection in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Total number of audit events by result",
		},
		[]string{"type", "result"}, // result: "written", "failed", "dropped"
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
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

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

// RecordRun records the outcome of one pipeline run.
func RecordRun(outcome string, duration time.Duration) {
	PipelineRuns.WithLabelValues(outcome).Inc()
	if outcome == "ready" {
		PipelineRunDuration.Observe(duration.Seconds())
	}
}

// RecordStage records how long a pipeline stage took.
func RecordStage(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPluginCall records a plugin invocation. kind is empty on success,
// otherwise "error" or "panic".
func RecordPluginCall(plugin, stage, kind string, duration time.Duration) {
	PluginInvocations.WithLabelValues(plugin, stage).Inc()
	PluginDuration.WithLabelValues(plugin, stage).Observe(duration.Seconds())
	if kind != "" {
		PluginErrors.WithLabelValues(plugin, stage, kind).Inc()
	}
}

// RecordCandidates records the candidate count of a run.
func RecordCandidates(n int) {
	CandidatesGenerated.Observe(float64(n))
}

// RecordPublished adds n published recommendations.
func RecordPublished(n int) {
	if n > 0 {
		RecommendationsPublished.Add(float64(n))
	}
}

// RecordQueueBatch records the per-result user counts of one queue batch.
func RecordQueueBatch(duration time.Duration, results map[string]int) {
	QueueBatchDuration.Observe(duration.Seconds())
	for result, n := range results {
		if n > 0 {
			QueueBatchUsers.WithLabelValues(result).Add(float64(n))
		}
	}
}

// RecordStale adds n statuses moved to STALE.
func RecordStale(n int64) {
	if n > 0 {
		StatusesMarkedStale.Add(float64(n))
	}
}

// RecordHistoryPurged adds n purged history rows.
func RecordHistoryPurged(n int64) {
	if n > 0 {
		HistoryPurged.Add(float64(n))
	}
}

// RecordEventPublish records an event publish attempt.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordFlagStoreGC records a flag store garbage collection pass.
func RecordFlagStoreGC(duration time.Duration) {
	FlagStoreGCRuns.Inc()
	FlagStoreGCDuration.Observe(duration.Seconds())
}

// RecordAuditEvent records the fate of one audit event.
func RecordAuditEvent(eventType, result string) {
	AuditEvents.WithLabelValues(eventType, result).Inc()
}
