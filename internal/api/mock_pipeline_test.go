// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/database"
	"github.com/tomtom215/recommender/internal/recommend"
)

// mockPipeline records calls and returns canned results.
type mockPipeline struct {
	mu    sync.Mutex
	calls []string

	buildResult *recommend.BuildResult
	buildErr    error
	hookResult  *recommend.BuildResult
	hookErr     error

	flags    []recommend.Flag
	status   *recommend.UserStatus
	statuses []recommend.UserStatus
	history  []recommend.HistoryEntry
	plugins  []recommend.PluginStatus
	queued   int
	removed  int
	scores   int64
	stats    recommend.QueueStats
	err      error

	lastPriority int
	lastNow      bool
	lastLimit    int
	lastBudget   time.Duration
	lastUserID   *int64
	lastPlugin   string
}

func (m *mockPipeline) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockPipeline) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockPipeline) BuildUserRecommendations(_ context.Context, _ int64, priority int, now bool) (*recommend.BuildResult, error) {
	m.record("build")
	m.mu.Lock()
	m.lastPriority, m.lastNow = priority, now
	m.mu.Unlock()
	return m.buildResult, m.buildErr
}

func (m *mockPipeline) BuildAllUserRecommendations(_ context.Context, now bool) (int, error) {
	m.record("build_all")
	m.mu.Lock()
	m.lastNow = now
	m.mu.Unlock()
	return m.queued, m.err
}

func (m *mockPipeline) ResetUserRecommendations(_ context.Context, userID *int64) error {
	m.record("reset")
	m.mu.Lock()
	m.lastUserID = userID
	m.mu.Unlock()
	return m.err
}

func (m *mockPipeline) DeleteUserRecommendations(_ context.Context, userID *int64) (int, error) {
	m.record("delete")
	m.mu.Lock()
	m.lastUserID = userID
	m.mu.Unlock()
	return m.removed, m.err
}

func (m *mockPipeline) UserRecommendations(_ context.Context, _ int64, n int) ([]recommend.Flag, error) {
	m.record("recommendations")
	m.mu.Lock()
	m.lastLimit = n
	m.mu.Unlock()
	return m.flags, m.err
}

func (m *mockPipeline) UserStatus(_ context.Context, _ int64) (*recommend.UserStatus, error) {
	m.record("status")
	if m.status == nil {
		return nil, recommend.ErrNotFound
	}
	return m.status, m.err
}

func (m *mockPipeline) Statuses(_ context.Context, limit int) ([]recommend.UserStatus, error) {
	m.record("statuses")
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return m.statuses, m.err
}

func (m *mockPipeline) History(_ context.Context, _ int64, limit int) ([]recommend.HistoryEntry, error) {
	m.record("history")
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return m.history, m.err
}

func (m *mockPipeline) CheckStatus(_ context.Context) []recommend.PluginStatus {
	m.record("check_status")
	return m.plugins
}

func (m *mockPipeline) RemovePluginScores(_ context.Context, pluginID string) (int64, error) {
	m.record("remove_scores")
	m.mu.Lock()
	m.lastPlugin = pluginID
	m.mu.Unlock()
	return m.scores, m.err
}

func (m *mockPipeline) ProcessQueue(_ context.Context, budget time.Duration) (recommend.QueueStats, error) {
	m.record("process_queue")
	m.mu.Lock()
	m.lastBudget = budget
	m.mu.Unlock()
	return m.stats, m.err
}

func (m *mockPipeline) OnUserRegistered(_ context.Context, _ int64) (*recommend.BuildResult, error) {
	m.record("on_registered")
	return m.hookResult, m.hookErr
}

func (m *mockPipeline) OnUserUpdated(_ context.Context, _ int64) (*recommend.BuildResult, error) {
	m.record("on_updated")
	return m.hookResult, m.hookErr
}

func (m *mockPipeline) OnUserLogin(_ context.Context, _ int64) (*recommend.BuildResult, error) {
	m.record("on_login")
	return m.hookResult, m.hookErr
}

func (m *mockPipeline) OnRecommendationsRequested(_ context.Context, _ int64) (*recommend.BuildResult, error) {
	m.record("on_requested")
	return m.hookResult, m.hookErr
}

// mockCatalog captures imported batches.
type mockCatalog struct {
	mu      sync.Mutex
	batches []*database.CatalogBatch
	err     error
}

func (m *mockCatalog) ImportCatalog(_ context.Context, b *database.CatalogBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, b)
	return nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockHealth struct {
	ok   bool
	desc string
}

func (m *mockHealth) Health(context.Context) (bool, string) { return m.ok, m.desc }

var errBoom = errors.New("boom")

// newTestRouter wires a router around the mocks with rate limiting off.
func newTestRouter(p *mockPipeline, c *mockCatalog) http.Handler {
	deps := HandlerDeps{
		Pipeline: p,
		DB:       &mockPinger{},
		Events:   &mockHealth{ok: true, desc: "in-process"},
		Config:   HandlerConfig{QueueBudget: 30 * time.Second, DefaultLimit: 20, MaxImportRows: 10},
		Logger:   zerolog.Nop(),
	}
	if c != nil {
		deps.Catalog = c
	}
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	return NewRouter(NewHandler(deps), RouterConfig{Middleware: mw, Logger: zerolog.Nop()})
}
