// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

/*
Package middleware provides the HTTP middleware shared by the API router.

Components:

  - RequestID: accepts or generates an X-Request-ID and stores it, together
    with a fresh correlation id, in the request context for logging
  - PrometheusMetrics: request count, latency and in-flight gauge, labeled
    with the chi route pattern so path parameters do not explode cardinality
  - AccessLog: one zerolog line per request, raised to warn for slow
    requests and to error for 5xx responses

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(logger, time.Second))
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
