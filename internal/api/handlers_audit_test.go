// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/audit"
)

type recordedAudit struct {
	typ     audit.EventType
	outcome audit.Outcome
	target  *audit.Target
	meta    map[string]any
}

// mockAuditor records audit calls and serves canned query results.
type mockAuditor struct {
	mu         sync.Mutex
	records    []recordedAudit
	events     []audit.Event
	lastFilter audit.QueryFilter
}

func (m *mockAuditor) Record(_ *http.Request, typ audit.EventType, outcome audit.Outcome, target *audit.Target, _ string, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedAudit{typ: typ, outcome: outcome, target: target, meta: metadata})
}

func (m *mockAuditor) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	return m.events, nil
}

func (m *mockAuditor) Records() []recordedAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedAudit(nil), m.records...)
}

func newAuditedRouter(p *mockPipeline, c *mockCatalog, a *mockAuditor) http.Handler {
	deps := HandlerDeps{
		Pipeline: p,
		DB:       &mockPinger{},
		Audit:    a,
		Config:   HandlerConfig{DefaultLimit: 20, MaxImportRows: 10},
		Logger:   zerolog.Nop(),
	}
	if c != nil {
		deps.Catalog = c
	}
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	return NewRouter(NewHandler(deps), RouterConfig{Middleware: mw, Logger: zerolog.Nop()})
}

func TestAdminActionsAreAudited(t *testing.T) {
	tests := []struct {
		name     string
		pipeline *mockPipeline
		method   string
		path     string
		body     string
		wantType audit.EventType
		wantOut  audit.Outcome
		target   string
	}{
		{
			name: "rebuild all", pipeline: &mockPipeline{queued: 3},
			method: http.MethodPost, path: "/api/v1/recommendations/rebuild",
			wantType: audit.EventTypeRebuildAll, wantOut: audit.OutcomeSuccess,
		},
		{
			name: "delete user", pipeline: &mockPipeline{removed: 2},
			method: http.MethodDelete, path: "/api/v1/users/7/recommendations",
			wantType: audit.EventTypeDeleteUser, wantOut: audit.OutcomeSuccess, target: "7",
		},
		{
			name: "delete all failure", pipeline: &mockPipeline{err: errBoom},
			method: http.MethodDelete, path: "/api/v1/recommendations",
			wantType: audit.EventTypeDeleteAll, wantOut: audit.OutcomeFailure,
		},
		{
			name: "remove plugin scores", pipeline: &mockPipeline{scores: 9},
			method: http.MethodDelete, path: "/api/v1/plugins/new_content/scores",
			wantType: audit.EventTypePluginScoresRemoved, wantOut: audit.OutcomeSuccess, target: "new_content",
		},
		{
			name: "process queue", pipeline: &mockPipeline{},
			method: http.MethodPost, path: "/api/v1/queue/process", body: `{"budget_seconds": 5}`,
			wantType: audit.EventTypeQueueProcessed, wantOut: audit.OutcomeSuccess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAuditor{}
			do(t, newAuditedRouter(tt.pipeline, nil, a), tt.method, tt.path, tt.body)

			records := a.Records()
			if len(records) != 1 {
				t.Fatalf("got %d audit records, want 1", len(records))
			}
			got := records[0]
			if got.typ != tt.wantType || got.outcome != tt.wantOut {
				t.Errorf("record = %s/%s, want %s/%s", got.typ, got.outcome, tt.wantType, tt.wantOut)
			}
			if tt.target != "" && (got.target == nil || got.target.ID != tt.target) {
				t.Errorf("target = %+v, want id %s", got.target, tt.target)
			}
			if tt.wantOut == audit.OutcomeFailure && got.meta["error"] == nil {
				t.Error("failure record carries no error")
			}
		})
	}
}

func TestCatalogImportIsAudited(t *testing.T) {
	a := &mockAuditor{}
	router := newAuditedRouter(&mockPipeline{}, &mockCatalog{}, a)
	rec, _ := do(t, router, http.MethodPost, "/api/v1/catalog/import",
		`{"users":[{"id":1,"active":true}],"content":[{"id":2,"type":"article","published":true}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	records := a.Records()
	if len(records) != 1 || records[0].typ != audit.EventTypeCatalogImport || records[0].meta["rows"] != 2 {
		t.Errorf("records = %+v", records)
	}
}

func TestReadOnlyEndpointsAreNotAudited(t *testing.T) {
	a := &mockAuditor{}
	router := newAuditedRouter(&mockPipeline{}, nil, a)
	do(t, router, http.MethodGet, "/api/v1/statuses", "")
	do(t, router, http.MethodGet, "/api/v1/health", "")
	if n := len(a.Records()); n != 0 {
		t.Errorf("got %d audit records for read-only requests", n)
	}
}

func TestAuditEvents(t *testing.T) {
	ts := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	a := &mockAuditor{events: []audit.Event{
		{ID: "e1", Timestamp: ts, Type: audit.EventTypeDeleteAll, Outcome: audit.OutcomeSuccess},
	}}
	router := newAuditedRouter(&mockPipeline{}, nil, a)

	rec, env := do(t, router, http.MethodGet,
		"/api/v1/audit?limit=5&type=recommendations.delete_all&outcome=success&since=2026-04-01T00:00:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var events []audit.Event
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Errorf("events = %+v", events)
	}
	if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != 1 {
		t.Errorf("meta = %+v", env.Meta)
	}

	a.mu.Lock()
	f := a.lastFilter
	a.mu.Unlock()
	if f.Limit != 5 || f.Outcome != audit.OutcomeSuccess || len(f.Types) != 1 || !f.Since.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("filter = %+v", f)
	}
}

func TestAuditEvents_Errors(t *testing.T) {
	tests := []struct {
		name       string
		router     http.Handler
		query      string
		wantStatus int
	}{
		{"disabled", newTestRouter(&mockPipeline{}, nil), "", http.StatusServiceUnavailable},
		{"bad type", newAuditedRouter(&mockPipeline{}, nil, &mockAuditor{}), "?type=nope", http.StatusBadRequest},
		{"bad outcome", newAuditedRouter(&mockPipeline{}, nil, &mockAuditor{}), "?outcome=maybe", http.StatusBadRequest},
		{"bad since", newAuditedRouter(&mockPipeline{}, nil, &mockAuditor{}), "?since=yesterday", http.StatusBadRequest},
		{"bad limit", newAuditedRouter(&mockPipeline{}, nil, &mockAuditor{}), "?limit=0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, tt.router, http.MethodGet, "/api/v1/audit"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if env.Success {
				t.Error("expected an error envelope")
			}
			if tt.wantStatus == http.StatusBadRequest && !strings.Contains(rec.Body.String(), "error") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}
