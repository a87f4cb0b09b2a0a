//go:build integration

// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/recommend"
)

// testDBSemaphore serializes DuckDB tests. Concurrent CGO calls from many
// parallel tests can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

var epoch = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// setupTestDB opens an in-memory database held for the whole test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func seedCatalog(t *testing.T, db *DB) {
	t.Helper()
	batch := &CatalogBatch{
		Users: []recommend.User{
			{ID: 1, Name: "ana", Language: "en", Active: true},
			{ID: 2, Name: "ben", Language: "de", Active: true},
			{ID: 3, Name: "cat", Active: false},
		},
		Content: []recommend.Content{
			{ID: 10, Type: "article", Title: "Ten", Language: "en", TopicID: 100, Published: true, Changed: epoch.Add(-1 * time.Hour)},
			{ID: 11, Type: "article", Title: "Eleven", Language: "und", TopicID: 100, Published: true, Changed: epoch.Add(-2 * time.Hour)},
			{ID: 12, Type: "video", Title: "Twelve", Language: "de", TopicID: 200, Published: true, Changed: epoch},
			{ID: 13, Type: "article", Title: "Thirteen", Language: "en", TopicID: 100, Published: false, Changed: epoch},
			{ID: 14, Type: "lesson", Title: "Fourteen", Language: "en", TopicID: 100, ParentID: 10, Published: true, Changed: epoch.Add(-3 * time.Hour)},
		},
		Views: []ViewCount{
			{ContentID: 10, Views: 5},
			{ContentID: 11, Views: 50},
			{ContentID: 12, Views: 0},
			{ContentID: 13, Views: 500},
		},
		Completions: []Completion{
			{UserID: 1, ContentID: 11, Completed: epoch.Add(-48 * time.Hour)},
			{UserID: 1, ContentID: 12, Completed: epoch.Add(-24 * time.Hour)},
		},
		Interests: []Interests{{UserID: 1, Topics: []int64{100, 300}}},
		Similarity: []Similarity{
			{ContentID: 11, SimilarID: 10, Score: 0.4},
			{ContentID: 11, SimilarID: 14, Score: 0.9},
			{ContentID: 11, SimilarID: 13, Score: 1.0},
		},
		Review: []ReviewItem{
			{UserID: 1, ContentID: 12, Due: epoch.Add(time.Hour)},
			{UserID: 1, ContentID: 10, Due: epoch},
		},
	}
	if err := db.ImportCatalog(context.Background(), batch); err != nil {
		t.Fatalf("ImportCatalog() error = %v", err)
	}
}

func contentIDs(items []recommend.Content) []int64 {
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNew_SchemaVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	v, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != len(db.getMigrations()) {
		t.Errorf("SchemaVersion() = %d, want %d", v, len(db.getMigrations()))
	}

	// Re-running migrations is a no-op.
	if err := db.runVersionedMigrations(); err != nil {
		t.Errorf("runVersionedMigrations() second run error = %v", err)
	}
}

func TestStatus_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetStatus(ctx, 1); !errors.Is(err, recommend.ErrNotFound) {
		t.Fatalf("GetStatus() error = %v, want ErrNotFound", err)
	}
	if _, err := db.ClaimRun(ctx, 1, "run-0", epoch, epoch); !errors.Is(err, recommend.ErrNotFound) {
		t.Fatalf("ClaimRun() on missing record error = %v, want ErrNotFound", err)
	}

	if err := db.EnqueueStatus(ctx, 1, 2, epoch); err != nil {
		t.Fatalf("EnqueueStatus() error = %v", err)
	}
	st, err := db.GetStatus(ctx, 1)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if st.Status != recommend.StatusQueued || st.Priority != 2 || st.Updated != nil || !st.Created.Equal(epoch) {
		t.Errorf("new status = %+v", st)
	}

	ok, err := db.ClaimRun(ctx, 1, "run-1", epoch, epoch.Add(-time.Minute))
	if err != nil || !ok {
		t.Fatalf("ClaimRun() = %v, %v; want true", ok, err)
	}
	// Lease held: a second claim loses.
	ok, err = db.ClaimRun(ctx, 1, "run-2", epoch.Add(time.Minute), epoch.Add(-time.Minute))
	if err != nil || ok {
		t.Fatalf("second ClaimRun() = %v, %v; want false", ok, err)
	}

	// Enqueue during a run is remembered until release.
	if err := db.EnqueueStatus(ctx, 1, 5, epoch.Add(time.Minute)); err != nil {
		t.Fatalf("EnqueueStatus() during run error = %v", err)
	}
	if err := db.EnqueueStatus(ctx, 1, 1, epoch.Add(time.Minute)); err != nil {
		t.Fatalf("EnqueueStatus() during run error = %v", err)
	}
	st, _ = db.GetStatus(ctx, 1)
	if st.Priority != 2 || st.RunID != "run-1" {
		t.Errorf("status during run = %+v, want priority 2 owned by run-1", st)
	}

	updated := epoch.Add(2 * time.Minute)
	st.Status = recommend.StatusReady
	st.Priority = 0
	st.Updated = &updated
	st.Duration = 1500 * time.Millisecond
	st.Retrieved = 7
	st.Changed = updated
	if err := db.SaveRunStatus(ctx, st); err != nil {
		t.Fatalf("SaveRunStatus() error = %v", err)
	}

	lost := *st
	lost.RunID = "run-2"
	if err := db.SaveRunStatus(ctx, &lost); !errors.Is(err, recommend.ErrRunLost) {
		t.Errorf("SaveRunStatus() by non-owner error = %v, want ErrRunLost", err)
	}

	if err := db.ReleaseRun(ctx, 1, "run-1"); err != nil {
		t.Fatalf("ReleaseRun() error = %v", err)
	}
	st, _ = db.GetStatus(ctx, 1)
	if st.RunID != "" || st.Status != recommend.StatusQueued || st.Priority != 5 || st.Retrieved != 7 || st.Duration != 1500*time.Millisecond {
		t.Errorf("released status = %+v, want queued with priority 5", st)
	}
	if st.Updated == nil || !st.Updated.Equal(updated) {
		t.Errorf("updated = %v, want %v", st.Updated, updated)
	}

	// Nothing requested during the second run: release keeps READY.
	ok, err = db.ClaimRun(ctx, 1, "run-3", updated, updated.Add(-time.Minute))
	if err != nil || !ok {
		t.Fatalf("ClaimRun() after release = %v, %v; want true", ok, err)
	}
	st.RunID = "run-3"
	st.Status = recommend.StatusReady
	st.Priority = 0
	if err := db.SaveRunStatus(ctx, st); err != nil {
		t.Fatalf("SaveRunStatus() error = %v", err)
	}
	if err := db.ReleaseRun(ctx, 1, "run-3"); err != nil {
		t.Fatalf("ReleaseRun() error = %v", err)
	}
	st, _ = db.GetStatus(ctx, 1)
	if st.Status != recommend.StatusReady || st.Priority != 0 {
		t.Errorf("released status = %+v, want ready with priority 0", st)
	}
}

func TestClaimRun_ExpiredLease(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.EnqueueStatus(ctx, 1, 0, epoch); err != nil {
		t.Fatalf("EnqueueStatus() error = %v", err)
	}
	if ok, _ := db.ClaimRun(ctx, 1, "run-1", epoch, epoch.Add(-time.Hour)); !ok {
		t.Fatal("first ClaimRun() should win")
	}
	// The first owner's lease started at epoch; a cutoff after it expires it.
	ok, err := db.ClaimRun(ctx, 1, "run-2", epoch.Add(time.Hour), epoch.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("ClaimRun() after lease expiry = %v, %v; want true", ok, err)
	}
	st, _ := db.GetStatus(ctx, 1)
	if st.RunID != "run-2" {
		t.Errorf("owner = %q, want run-2", st.RunID)
	}
}

func TestDueStatuses_AndMarkStale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, u := range []struct {
		id       int64
		priority int
	}{{1, 0}, {2, 3}, {3, 1}, {4, 0}} {
		if err := db.EnqueueStatus(ctx, u.id, u.priority, epoch); err != nil {
			t.Fatalf("EnqueueStatus(%d) error = %v", u.id, err)
		}
	}

	// User 4 finishes a run and becomes READY.
	if ok, _ := db.ClaimRun(ctx, 4, "run", epoch, epoch); !ok {
		t.Fatal("ClaimRun() should win")
	}
	old := epoch.Add(-10 * 24 * time.Hour)
	if err := db.SaveRunStatus(ctx, &recommend.UserStatus{
		UserID: 4, Status: recommend.StatusReady, Updated: &old, Created: epoch, Changed: epoch, RunID: "run",
	}); err != nil {
		t.Fatalf("SaveRunStatus() error = %v", err)
	}
	_ = db.ReleaseRun(ctx, 4, "run")

	due, err := db.DueStatuses(ctx, recommend.ProcessableStatuses, epoch, 10)
	if err != nil {
		t.Fatalf("DueStatuses() error = %v", err)
	}
	got := make([]int64, len(due))
	for i := range due {
		got[i] = due[i].UserID
	}
	if !equalIDs(got, []int64{2, 3, 1}) {
		t.Errorf("DueStatuses() = %v, want [2 3 1]", got)
	}

	limited, _ := db.DueStatuses(ctx, recommend.ProcessableStatuses, epoch, 1)
	if len(limited) != 1 || limited[0].UserID != 2 {
		t.Errorf("limited DueStatuses() = %+v", limited)
	}
	if none, _ := db.DueStatuses(ctx, nil, epoch, 10); len(none) != 0 {
		t.Errorf("DueStatuses(nil) = %+v, want none", none)
	}

	n, err := db.MarkStale(ctx, epoch.Add(-7*24*time.Hour), epoch)
	if err != nil || n != 1 {
		t.Fatalf("MarkStale() = %d, %v; want 1", n, err)
	}
	st, _ := db.GetStatus(ctx, 4)
	if st.Status != recommend.StatusStale {
		t.Errorf("status = %s, want stale", st.Status)
	}
	if n, _ := db.MarkStale(ctx, epoch.Add(-7*24*time.Hour), epoch); n != 0 {
		t.Errorf("second MarkStale() = %d, want 0", n)
	}

	list, err := db.ListStatuses(ctx, 0)
	if err != nil || len(list) != 4 {
		t.Fatalf("ListStatuses() = %d records, %v", len(list), err)
	}

	if err := db.DeleteStatus(ctx, 1); err != nil {
		t.Fatalf("DeleteStatus() error = %v", err)
	}
	if list, _ := db.ListStatuses(ctx, 0); len(list) != 3 {
		t.Errorf("ListStatuses() after delete = %d records, want 3", len(list))
	}
	if err := db.DeleteAllStatuses(ctx); err != nil {
		t.Fatalf("DeleteAllStatuses() error = %v", err)
	}
	if list, _ := db.ListStatuses(ctx, 0); len(list) != 0 {
		t.Errorf("ListStatuses() after delete all = %d records", len(list))
	}
}

func TestCandidatesAndScores(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	content := recommend.Content{ID: 10, Type: "article", Published: true}

	c, err := db.GetOrCreateCandidate(ctx, 1, content, epoch)
	if err != nil {
		t.Fatalf("GetOrCreateCandidate() error = %v", err)
	}
	if c.Status != recommend.CandidateQueued || len(c.Scores) != 0 || c.Content.ID != 10 {
		t.Errorf("new candidate = %+v", c)
	}

	scores := []recommend.PluginScore{
		{UserID: 1, ContentID: 10, PluginID: "b", Score: 0.3, Reason: "popular", Status: recommend.ScoreReady, Updated: epoch},
		{UserID: 1, ContentID: 10, PluginID: "a", Score: 0.5, Reason: "new", Status: recommend.ScoreReady, Updated: epoch},
		{UserID: 1, ContentID: 10, PluginID: "c", Score: 0.1, Reason: "stale", Status: recommend.ScoreProcessing, Updated: epoch},
	}
	for i := range scores {
		if err := db.UpsertScore(ctx, &scores[i]); err != nil {
			t.Fatalf("UpsertScore() error = %v", err)
		}
	}

	// Only b and a are referenced, in attach order.
	c.Scores = scores[:2]
	c.Status = recommend.CandidateReady
	c.Score = 0.8
	c.Reason = "Recommended because it's new and popular."
	c.Changed = epoch
	if err := db.SaveCandidate(ctx, c); err != nil {
		t.Fatalf("SaveCandidate() error = %v", err)
	}

	loaded, err := db.GetOrCreateCandidate(ctx, 1, content, epoch.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetOrCreateCandidate() reload error = %v", err)
	}
	if loaded.Status != recommend.CandidateReady || loaded.Score != 0.8 || loaded.Reason != c.Reason {
		t.Errorf("loaded candidate = %+v", loaded)
	}
	refs := loaded.ScoreRefs()
	if len(refs) != 2 || refs[0] != "b" || refs[1] != "a" {
		t.Errorf("ScoreRefs() = %v, want [b a]", refs)
	}

	// Updating a score in place.
	scores[0].Score = 0.9
	_ = db.UpsertScore(ctx, &scores[0])
	ps, err := db.GetScore(ctx, 1, 10, "b")
	if err != nil || ps.Score != 0.9 || ps.Status != recommend.ScoreReady {
		t.Errorf("GetScore() = %+v, %v", ps, err)
	}
	if _, err := db.GetScore(ctx, 1, 10, "missing"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetScore() missing error = %v, want ErrNotFound", err)
	}

	// A deleted score drops out of the references.
	n, err := db.DeletePluginScores(ctx, "a")
	if err != nil || n != 1 {
		t.Fatalf("DeletePluginScores() = %d, %v; want 1", n, err)
	}
	loaded, _ = db.GetOrCreateCandidate(ctx, 1, content, epoch)
	if refs := loaded.ScoreRefs(); len(refs) != 1 || refs[0] != "b" {
		t.Errorf("ScoreRefs() after delete = %v, want [b]", refs)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Candidates != 1 || counts.Scores != 2 {
		t.Errorf("GetRecordCounts() = %+v", counts)
	}

	if err := db.DeleteScores(ctx, 1); err != nil {
		t.Fatalf("DeleteScores() error = %v", err)
	}
	if err := db.DeleteCandidates(ctx, 1); err != nil {
		t.Fatalf("DeleteCandidates() error = %v", err)
	}
	counts, _ = db.GetRecordCounts(ctx)
	if counts.Candidates != 0 || counts.Scores != 0 {
		t.Errorf("GetRecordCounts() after delete = %+v", counts)
	}
	if err := db.DeleteAllCandidates(ctx); err != nil {
		t.Errorf("DeleteAllCandidates() error = %v", err)
	}
	if err := db.DeleteAllScores(ctx); err != nil {
		t.Errorf("DeleteAllScores() error = %v", err)
	}
}

func TestHistory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := &recommend.HistoryEntry{
			UserID:    1,
			ContentID: int64(10 + i),
			PluginID:  recommend.EnginePluginID,
			Score:     float64(i),
			Reason:    "because",
			Created:   epoch.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := db.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory() error = %v", err)
		}
		if e.ID == 0 {
			t.Error("AppendHistory() did not set the id")
		}
	}

	entries, err := db.HistoryFor(ctx, 1, 2)
	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}
	if len(entries) != 2 || entries[0].ContentID != 14 || entries[1].ContentID != 13 {
		t.Errorf("HistoryFor() = %+v, want newest two", entries)
	}

	// Three rows are older than the cutoff; purge them two at a time.
	cutoff := epoch.Add(3 * 24 * time.Hour)
	n, err := db.PurgeHistory(ctx, cutoff, 2)
	if err != nil || n != 2 {
		t.Fatalf("PurgeHistory() = %d, %v; want 2", n, err)
	}
	n, _ = db.PurgeHistory(ctx, cutoff, 2)
	if n != 1 {
		t.Errorf("second PurgeHistory() = %d, want 1", n)
	}
	entries, _ = db.HistoryFor(ctx, 1, 0)
	if len(entries) != 2 {
		t.Errorf("remaining history = %d, want 2", len(entries))
	}
}

func TestCatalog(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)
	en := []string{"zxx", "und", "en"}

	t.Run("content", func(t *testing.T) {
		c, err := db.Content(ctx, 13)
		if err != nil || c.Published || c.Title != "Thirteen" {
			t.Errorf("Content(13) = %+v, %v", c, err)
		}
		if _, err := db.Content(ctx, 99); !errors.Is(err, recommend.ErrNotFound) {
			t.Errorf("Content(99) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("recent", func(t *testing.T) {
		items, err := db.RecentContent(ctx, en, 10)
		if err != nil {
			t.Fatalf("RecentContent() error = %v", err)
		}
		if got := contentIDs(items); !equalIDs(got, []int64{10, 11, 14}) {
			t.Errorf("RecentContent() = %v, want [10 11 14]", got)
		}
	})

	t.Run("popular", func(t *testing.T) {
		items, _ := db.PopularContent(ctx, nil, 10)
		if got := contentIDs(items); !equalIDs(got, []int64{11, 10}) {
			t.Errorf("PopularContent() = %v, want [11 10]", got)
		}
	})

	t.Run("random", func(t *testing.T) {
		items, _ := db.RandomContent(ctx, 10)
		if len(items) != 4 {
			t.Errorf("RandomContent() returned %d items, want 4 published", len(items))
		}
	})

	t.Run("topic", func(t *testing.T) {
		items, _ := db.TopicContent(ctx, []int64{100}, []string{"article"}, []int64{11}, 10)
		if got := contentIDs(items); !equalIDs(got, []int64{10}) {
			t.Errorf("TopicContent() = %v, want [10]", got)
		}
		if items, _ := db.TopicContent(ctx, nil, nil, nil, 10); len(items) != 0 {
			t.Errorf("TopicContent(no topics) = %v, want none", contentIDs(items))
		}
	})

	t.Run("similar", func(t *testing.T) {
		items, err := db.SimilarContent(ctx, 11, en, 10)
		if err != nil {
			t.Fatalf("SimilarContent() error = %v", err)
		}
		if len(items) != 2 || items[0].Content.ID != 14 || items[0].Score != 0.9 || items[1].Content.ID != 10 {
			t.Errorf("SimilarContent() = %+v", items)
		}
	})

	t.Run("pad", func(t *testing.T) {
		items, _ := db.PadContent(ctx, 1, nil, 10)
		if got := contentIDs(items); !equalIDs(got, []int64{10, 14}) {
			t.Errorf("PadContent() = %v, want [10 14]", got)
		}
	})

	t.Run("review", func(t *testing.T) {
		items, _ := db.ReviewContent(ctx, 1, 10)
		if got := contentIDs(items); !equalIDs(got, []int64{10, 12}) {
			t.Errorf("ReviewContent() = %v, want [10 12]", got)
		}
	})

	t.Run("user data", func(t *testing.T) {
		topics, _ := db.UserInterests(ctx, 1)
		if !equalIDs(topics, []int64{100, 300}) {
			t.Errorf("UserInterests() = %v", topics)
		}
		done, _ := db.Completions(ctx, 1)
		if !equalIDs(done, []int64{12, 11}) {
			t.Errorf("Completions() = %v, want newest first", done)
		}
	})

	t.Run("users", func(t *testing.T) {
		u, err := db.GetUser(ctx, 2)
		if err != nil || u.Language != "de" || !u.Active {
			t.Errorf("GetUser(2) = %+v, %v", u, err)
		}
		if _, err := db.GetUser(ctx, 99); !errors.Is(err, recommend.ErrUserNotFound) {
			t.Errorf("GetUser(99) error = %v, want ErrUserNotFound", err)
		}
		ids, _ := db.ActiveUsers(ctx)
		if !equalIDs(ids, []int64{1, 2}) {
			t.Errorf("ActiveUsers() = %v, want [1 2]", ids)
		}
	})
}

func TestImportCatalog_ReplacesInterests(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	batch := &CatalogBatch{Interests: []Interests{{UserID: 1, Topics: []int64{300, 400}}}}
	if batch.Size() != 2 {
		t.Errorf("Size() = %d, want 2", batch.Size())
	}
	if err := db.ImportCatalog(ctx, batch); err != nil {
		t.Fatalf("ImportCatalog() error = %v", err)
	}
	topics, _ := db.UserInterests(ctx, 1)
	if !equalIDs(topics, []int64{300, 400}) {
		t.Errorf("UserInterests() = %v, want [300 400]", topics)
	}

	if err := db.ImportCatalog(ctx, &CatalogBatch{Interests: []Interests{{UserID: 1}}}); err != nil {
		t.Fatalf("ImportCatalog() error = %v", err)
	}
	if topics, _ := db.UserInterests(ctx, 1); len(topics) != 0 {
		t.Errorf("UserInterests() = %v, want none", topics)
	}
}
