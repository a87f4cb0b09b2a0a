//go:build integration

// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/database"
)

func setupStore(t *testing.T) *DuckDBStore {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1, SkipIndexes: true})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewDuckDBStore(db.Conn())
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	return store
}

func TestDuckDBStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	events := []Event{
		{ID: "e1", Timestamp: base, Type: EventTypeCatalogImport, Outcome: OutcomeSuccess,
			Source: Source{IPAddress: "127.0.0.1"}, Description: "imported", Metadata: []byte(`{"rows":4}`)},
		{ID: "e2", Timestamp: base.Add(time.Hour), Type: EventTypeDeleteUser, Outcome: OutcomeSuccess,
			Target: &Target{Type: "user", ID: "3"}, Source: Source{IPAddress: "127.0.0.1", UserAgent: "test"},
			Description: "deleted", RequestID: "r2"},
		{ID: "e3", Timestamp: base.Add(2 * time.Hour), Type: EventTypeDeleteAll, Outcome: OutcomeFailure,
			Source: Source{IPAddress: "127.0.0.1"}, Description: "failed"},
	}
	for i := range events {
		if err := store.Save(ctx, &events[i]); err != nil {
			t.Fatalf("Save(%s) error = %v", events[i].ID, err)
		}
	}

	all, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "e3" {
		t.Fatalf("Query() = %+v", all)
	}

	byType, _ := store.Query(ctx, QueryFilter{Types: []EventType{EventTypeDeleteUser}})
	if len(byType) != 1 {
		t.Fatalf("type filter returned %d", len(byType))
	}
	got := byType[0]
	if got.Target == nil || got.Target.ID != "3" || got.RequestID != "r2" || got.Source.UserAgent != "test" {
		t.Errorf("round trip lost fields: %+v", got)
	}

	imported, _ := store.Query(ctx, QueryFilter{Types: []EventType{EventTypeCatalogImport}})
	if len(imported) != 1 || string(imported[0].Metadata) != `{"rows":4}` || imported[0].Target != nil {
		t.Errorf("import event = %+v", imported)
	}

	since, _ := store.Query(ctx, QueryFilter{Since: base.Add(30 * time.Minute), Outcome: OutcomeSuccess})
	if len(since) != 1 || since[0].ID != "e2" {
		t.Errorf("since+outcome filter = %+v", since)
	}

	n, err := store.Delete(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Delete() = %d, want 2", n)
	}
	left, _ := store.Query(ctx, QueryFilter{Limit: 10})
	if len(left) != 1 || left[0].ID != "e3" {
		t.Errorf("after delete = %+v", left)
	}
}
