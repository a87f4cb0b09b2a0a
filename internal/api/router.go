// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/middleware"
)

const (
	// maxBodyBytes caps ordinary request bodies.
	maxBodyBytes = 64 << 10

	// maxImportBodyBytes caps catalog import bodies.
	maxImportBodyBytes = 32 << 20

	// slowRequest promotes access log lines to warn.
	slowRequest = time.Second
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Middleware *ChiMiddlewareConfig
	Logger     zerolog.Logger

	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration
}

// NewRouter builds the chi router serving the admin API and /metrics.
//
//nolint:gocritic // cfg is a one-shot value parameter
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mw := NewChiMiddleware(cfg.Middleware)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(cfg.Logger, slowRequest))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(mw.CORS())

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())
		if cfg.Timeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.Timeout))
		}

		r.Get("/health", h.Health)
		r.Get("/status", h.PluginStatus)
		r.Get("/statuses", h.Statuses)
		r.Get("/audit", h.AuditEvents)

		r.Group(func(r chi.Router) {
			r.Use(MaxBodySize(maxBodyBytes))

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/recommendations", h.UserRecommendations)
				r.Post("/recommendations", h.BuildUser)
				r.Delete("/recommendations", h.DeleteUser)
				r.Get("/status", h.UserStatus)
				r.Get("/history", h.UserHistory)
				r.Post("/events/{event}", h.UserEvent)
			})

			r.Post("/recommendations/rebuild", h.RebuildAll)
			r.Delete("/recommendations", h.DeleteAll)
			r.Post("/queue/process", h.ProcessQueue)
			r.Delete("/plugins/{pluginID}/scores", h.RemovePluginScores)
		})

		r.With(MaxBodySize(maxImportBodyBytes)).Post("/catalog/import", h.ImportCatalog)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
