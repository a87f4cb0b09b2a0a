// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
are exposed at /metrics by the API router.

# Available Metrics

Pipeline Metrics:
  - recommend_pipeline_runs_total: Runs by outcome (ready, not_ready, busy, failed)
  - recommend_pipeline_run_duration_seconds: Duration of completed runs
  - recommend_stage_duration_seconds: Duration per stage
  - recommend_plugin_invocations_total / recommend_plugin_errors_total:
    Plugin calls and failures, labelled by plugin and stage
  - recommend_published_total: Recommendations written to the flag sink
  - recommend_queue_users_total: Users handled by the queue driver by result
  - recommend_statuses_marked_stale_total, recommend_history_purged_total

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)

API Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests by result
  - circuit_breaker_state_transitions_total: State transitions

# Usage

	start := time.Now()
	err := store.SaveCandidate(ctx, c)
	metrics.RecordDBQuery("update", "recommendation_candidates", time.Since(start), err)
*/
package metrics
