// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/logging"
)

// AccessLog writes one line per request. Requests slower than slow are
// logged at warn, 5xx responses at error. A zero slow disables the
// slow-request promotion.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func AccessLog(logger zerolog.Logger, slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			next.ServeHTTP(sw, r.WithContext(ctx))

			elapsed := time.Since(start)
			l := logging.Ctx(ctx)

			var ev *zerolog.Event
			switch {
			case sw.status >= http.StatusInternalServerError:
				ev = l.Error()
			case slow > 0 && elapsed > slow:
				ev = l.Warn().Bool("slow", true)
			default:
				ev = l.Debug()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", sw.status).
				Int("bytes", sw.bytes).
				Dur("duration", elapsed).
				Str("remote", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}
