// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/recommend"
)

type mockQueue struct {
	mu      sync.Mutex
	budgets []time.Duration
	err     error
}

func (m *mockQueue) ProcessQueue(_ context.Context, budget time.Duration) (recommend.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = append(m.budgets, budget)
	return recommend.QueueStats{Selected: 2, Processed: 2}, m.err
}

func (m *mockQueue) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.budgets)
}

type mockStale struct {
	mu    sync.Mutex
	count int
	err   error
}

func (m *mockStale) MarkStale(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return 1, m.err
}

func (m *mockStale) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

type mockCleaner struct {
	mu    sync.Mutex
	count int
	err   error
}

func (m *mockCleaner) CleanupHistory(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return 5000, m.err
}

func (m *mockCleaner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

type mockCheckpoints struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

func newMockCheckpoints() *mockCheckpoints {
	return &mockCheckpoints{runs: make(map[string]time.Time)}
}

func (m *mockCheckpoints) LastRun(name string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.runs[name]
	return t, ok, nil
}

func (m *mockCheckpoints) RecordRun(name string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[name] = t
	return nil
}

type mockGC struct {
	mu    sync.Mutex
	count int
}

func (m *mockGC) RunGC() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return nil
}

func (m *mockGC) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// serveFor runs svc until d elapses and returns its error.
func serveFor(t *testing.T, svc interface{ Serve(context.Context) error }, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-time.After(d + 2*time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestQueueService(t *testing.T) {
	t.Run("processes on each tick with budget", func(t *testing.T) {
		q := &mockQueue{}
		svc := NewQueueService(q, QueueServiceConfig{Enabled: true, Interval: 20 * time.Millisecond, Budget: 15 * time.Millisecond}, zerolog.Nop())

		err := serveFor(t, svc, 150*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want DeadlineExceeded", err)
		}
		if q.calls() < 2 {
			t.Errorf("ProcessQueue calls = %d, want >= 2", q.calls())
		}
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.budgets[0] != 15*time.Millisecond {
			t.Errorf("budget = %v, want 15ms", q.budgets[0])
		}
	})

	t.Run("errors do not stop the loop", func(t *testing.T) {
		q := &mockQueue{err: errors.New("database locked")}
		svc := NewQueueService(q, QueueServiceConfig{Enabled: true, Interval: 20 * time.Millisecond}, zerolog.Nop())

		_ = serveFor(t, svc, 150*time.Millisecond)
		if q.calls() < 2 {
			t.Errorf("ProcessQueue calls = %d, want >= 2", q.calls())
		}
	})

	t.Run("idles when disabled", func(t *testing.T) {
		q := &mockQueue{}
		svc := NewQueueService(q, QueueServiceConfig{Enabled: false, Interval: 10 * time.Millisecond}, zerolog.Nop())

		_ = serveFor(t, svc, 80*time.Millisecond)
		if q.calls() != 0 {
			t.Errorf("ProcessQueue calls = %d, want 0", q.calls())
		}
	})

	if got := NewQueueService(&mockQueue{}, QueueServiceConfig{}, zerolog.Nop()).String(); got != "queue-processor" {
		t.Errorf("String() = %q", got)
	}
}

func TestStaleService_RunsOnStart(t *testing.T) {
	m := &mockStale{}
	svc := NewStaleService(m, time.Hour, zerolog.Nop())

	_ = serveFor(t, svc, 50*time.Millisecond)
	if m.calls() != 1 {
		t.Errorf("MarkStale calls = %d, want 1", m.calls())
	}
	if svc.String() != "stale-marker" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHistoryCleanupService(t *testing.T) {
	t.Run("records checkpoint after a pass", func(t *testing.T) {
		cleaner := &mockCleaner{}
		cp := newMockCheckpoints()
		svc := NewHistoryCleanupService(cleaner, cp, time.Hour, time.Second, zerolog.Nop())
		now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		_ = serveFor(t, svc, 50*time.Millisecond)
		if cleaner.calls() != 1 {
			t.Fatalf("CleanupHistory calls = %d, want 1", cleaner.calls())
		}
		last, ok, _ := cp.LastRun(historyCleanupJob)
		if !ok || !last.Equal(now) {
			t.Errorf("checkpoint = %v, %v", last, ok)
		}
	})

	t.Run("skips when a recent pass is checkpointed", func(t *testing.T) {
		cleaner := &mockCleaner{}
		cp := newMockCheckpoints()
		now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
		_ = cp.RecordRun(historyCleanupJob, now.Add(-10*time.Minute))

		svc := NewHistoryCleanupService(cleaner, cp, time.Hour, time.Second, zerolog.Nop())
		svc.now = func() time.Time { return now }

		_ = serveFor(t, svc, 50*time.Millisecond)
		if cleaner.calls() != 0 {
			t.Errorf("CleanupHistory calls = %d, want 0", cleaner.calls())
		}
	})

	t.Run("runs when the checkpoint is old", func(t *testing.T) {
		cleaner := &mockCleaner{}
		cp := newMockCheckpoints()
		now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
		_ = cp.RecordRun(historyCleanupJob, now.Add(-2*time.Hour))

		svc := NewHistoryCleanupService(cleaner, cp, time.Hour, time.Second, zerolog.Nop())
		svc.now = func() time.Time { return now }

		_ = serveFor(t, svc, 50*time.Millisecond)
		if cleaner.calls() != 1 {
			t.Errorf("CleanupHistory calls = %d, want 1", cleaner.calls())
		}
	})

	t.Run("failed pass is not checkpointed", func(t *testing.T) {
		cleaner := &mockCleaner{err: errors.New("budget exceeded")}
		cp := newMockCheckpoints()
		svc := NewHistoryCleanupService(cleaner, cp, time.Hour, time.Second, zerolog.Nop())

		_ = serveFor(t, svc, 50*time.Millisecond)
		if _, ok, _ := cp.LastRun(historyCleanupJob); ok {
			t.Error("checkpoint recorded after failure")
		}
	})
}

func TestFlagGCService(t *testing.T) {
	gc := &mockGC{}
	svc := NewFlagGCService(gc, 20*time.Millisecond, zerolog.Nop())

	_ = serveFor(t, svc, 150*time.Millisecond)
	if gc.calls() < 2 {
		t.Errorf("RunGC calls = %d, want >= 2", gc.calls())
	}
}

type mockPruner struct {
	mu    sync.Mutex
	count int
}

func (m *mockPruner) Prune(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return 3, nil
}

func TestAuditRetentionService_RunsOnStart(t *testing.T) {
	m := &mockPruner{}
	svc := NewAuditRetentionService(m, time.Hour, zerolog.Nop())

	_ = serveFor(t, svc, 50*time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count != 1 {
		t.Errorf("Prune calls = %d, want 1", m.count)
	}
	if svc.String() != "audit-retention" {
		t.Errorf("String() = %q", svc.String())
	}
}
