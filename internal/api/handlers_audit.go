// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/recommender/internal/audit"
)

// AuditEvents lists recorded admin actions, most recent first.
//
// Query parameters: limit, type, outcome, since (RFC 3339).
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.audit == nil {
		rw.ServiceUnavailable("Audit trail is disabled")
		return
	}
	limit, ok := h.limit(rw, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := AuditQueryRequest{Type: q.Get("type"), Outcome: q.Get("outcome")}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			rw.BadRequest(fmt.Sprintf("Invalid since parameter: %s", sanitizeLogValue(s)))
			return
		}
		req.Since = t
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	filter := audit.QueryFilter{Outcome: audit.Outcome(req.Outcome), Since: req.Since, Limit: limit}
	if req.Type != "" {
		filter.Types = []audit.EventType{audit.EventType(req.Type)}
	}
	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	rw.List(events, len(events))
}
