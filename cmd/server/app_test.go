//go:build integration

// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/recommend"
	"github.com/tomtom215/recommender/internal/supervisor"
)

func testConfig() *config.Config {
	return &config.Config{
		Recommend: config.RecommendConfig{
			Freshness:        "4 weeks",
			Timeout:          time.Hour,
			HistoryRetention: "forever",
			Combiner:         "sum_score",
			FlagType:         "recommendation",
			BuildOnLogin:     true,
			Concurrency:      2,
			BatchSize:        10,
			LeaseTimeout:     time.Minute,
			LoginPriority:    1,
		},
		Database: config.DatabaseConfig{
			Path:        ":memory:",
			MaxMemory:   "256MB",
			Threads:     2,
			SkipIndexes: true,
		},
		Flags: config.FlagsConfig{
			InMemory: true,
			Types:    map[string][]string{"recommendation": {}},
		},
		Scheduler: config.SchedulerConfig{
			QueueInterval:   time.Minute,
			QueueBudget:     10 * time.Second,
			StaleInterval:   time.Hour,
			CleanupInterval: time.Hour,
			CleanupBudget:   time.Second,
		},
		Server: config.ServerConfig{
			Port:            8085,
			Host:            "127.0.0.1",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Environment:     "development",
		},
		Security: config.SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
		Audit: config.AuditConfig{
			Enabled:    true,
			Store:      "duckdb",
			Retention:  time.Hour,
			BufferSize: 16,
		},
	}
}

func request(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_EndToEnd(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	now := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	var content []string
	for i := 1; i <= 12; i++ {
		content = append(content, fmt.Sprintf(
			`{"id": %d, "type": "article", "title": "Item %d", "published": true, "changed": %q}`, i, i, now))
	}
	batch := `{
		"users": [{"id": 1, "language": "en", "active": true}],
		"content": [` + strings.Join(content, ",") + `],
		"views": [{"content_id": 3, "views": 40}, {"content_id": 5, "views": 10}]
	}`

	if rec := request(t, a.router, http.MethodPost, "/api/v1/catalog/import", batch); rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := request(t, a.router, http.MethodPost, "/api/v1/users/1/recommendations", `{"now": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = request(t, a.router, http.MethodGet, "/api/v1/users/1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d, body %s", rec.Code, rec.Body.String())
	}
	var statusResp struct {
		Data recommend.UserStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &statusResp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if statusResp.Data.Status != recommend.StatusReady {
		t.Errorf("status = %v, want ready", statusResp.Data.Status)
	}

	rec = request(t, a.router, http.MethodGet, "/api/v1/users/1/recommendations", "")
	var recsResp struct {
		Data struct {
			Recommendations []recommend.Flag `json:"recommendations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &recsResp); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	if len(recsResp.Data.Recommendations) == 0 {
		t.Fatal("expected published recommendations")
	}
	for i := 1; i < len(recsResp.Data.Recommendations); i++ {
		if recsResp.Data.Recommendations[i].Score > recsResp.Data.Recommendations[i-1].Score {
			t.Errorf("recommendations not sorted by score at %d", i)
		}
	}

	if rec := request(t, a.router, http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := request(t, a.router, http.MethodGet, "/api/v1/users/99/status", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}

	// Audit writes are asynchronous.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = request(t, a.router, http.MethodGet, "/api/v1/audit?type=catalog.import", "")
		if strings.Contains(rec.Body.String(), `"catalog.import"`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("catalog import was not audited: %s", rec.Body.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApp_AddServices(t *testing.T) {
	a, err := newApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	cfg := supervisor.DefaultTreeConfig()
	cfg.ShutdownTimeout = 5 * time.Second
	tree, err := supervisor.NewSupervisorTree(slog.New(slog.DiscardHandler), cfg)
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	a.server.Addr = "127.0.0.1:0"
	a.addServices(tree)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = tree.Serve(ctx)

	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(unstopped) != 0 {
		t.Errorf("services failed to stop: %v", unstopped)
	}
}

func TestNewApp_InvalidPipelineConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Recommend.Freshness = "sometimes"
	if _, err := newApp(context.Background(), cfg); err == nil {
		t.Fatal("expected error for invalid freshness")
	}
}
