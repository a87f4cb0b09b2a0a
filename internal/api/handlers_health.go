// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/recommender/internal/recommend"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 2 * time.Second

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Uptime     float64                    `json:"uptime_seconds"`
	Components map[string]ComponentHealth `json:"components"`
}

// Health reports database and event sink health. The database is required;
// an unhealthy event sink only degrades the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := HealthStatus{
		Status:     "healthy",
		Version:    h.cfg.Version,
		Uptime:     time.Since(h.started).Seconds(),
		Components: make(map[string]ComponentHealth, 2),
	}

	db := ComponentHealth{OK: false, Description: "not configured"}
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			db.Description = err.Error()
		} else {
			db = ComponentHealth{OK: true, Description: "connected"}
		}
	}
	status.Components["database"] = db

	if h.events != nil {
		ok, desc := h.events.Health(ctx)
		status.Components["events"] = ComponentHealth{OK: ok, Description: desc}
		if !ok {
			status.Status = "degraded"
		}
	}

	if !db.OK {
		status.Status = "unhealthy"
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Database unavailable", status)
		return
	}
	rw.Success(status)
}

// PluginStatus reports the health of every enabled plugin.
func (h *Handler) PluginStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	statuses := h.pipeline.CheckStatus(r.Context())
	if statuses == nil {
		statuses = []recommend.PluginStatus{}
	}
	rw.List(statuses, len(statuses))
}
