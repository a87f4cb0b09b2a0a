// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package flags

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/recommend"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.FlagsConfig{
		InMemory: true,
		Types: map[string][]string{
			"recommended": {"article", "video"},
			"any":         nil,
		},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func flag(userID, contentID int64, plugin string) *recommend.Flag {
	return &recommend.Flag{
		FlagType:  "recommended",
		UserID:    userID,
		ContentID: contentID,
		PluginID:  plugin,
		Reason:    "popular",
		Score:     1.5,
	}
}

func TestStore_Applies(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		flagType    string
		contentType string
		want        bool
	}{
		{"recommended", "article", true},
		{"recommended", "video", true},
		{"recommended", "forum", false},
		{"any", "forum", true},
		{"missing", "article", false},
	}
	for _, tt := range tests {
		if got := s.Applies(tt.flagType, tt.contentType); got != tt.want {
			t.Errorf("Applies(%q, %q) = %v, want %v", tt.flagType, tt.contentType, got, tt.want)
		}
	}

	ctx := context.Background()
	if ok, _ := s.FlagTypeExists(ctx, "recommended"); !ok {
		t.Error("FlagTypeExists(recommended) = false")
	}
	if ok, _ := s.FlagTypeExists(ctx, "missing"); ok {
		t.Error("FlagTypeExists(missing) = true")
	}
}

func TestStore_FlagLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetFlagging(ctx, "recommended", 1, 10); !errors.Is(err, recommend.ErrNotFound) {
		t.Fatalf("GetFlagging() on empty store error = %v, want ErrNotFound", err)
	}

	f := flag(1, 10, "popular")
	if err := s.Flag(ctx, f); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	if f.ID == "" {
		t.Error("Flag() did not assign an id")
	}
	if f.Created.IsZero() {
		t.Error("Flag() did not set created")
	}

	ok, err := s.IsFlagged(ctx, "recommended", 1, 10)
	if err != nil || !ok {
		t.Fatalf("IsFlagged() = %v, %v", ok, err)
	}
	got, err := s.GetFlagging(ctx, "recommended", 1, 10)
	if err != nil {
		t.Fatalf("GetFlagging() error = %v", err)
	}
	if got.ID != f.ID || got.PluginID != "popular" || got.Score != 1.5 {
		t.Errorf("GetFlagging() = %+v", got)
	}

	// Other users and content are unaffected.
	if ok, _ := s.IsFlagged(ctx, "recommended", 2, 10); ok {
		t.Error("user 2 flagged")
	}
	if ok, _ := s.IsFlagged(ctx, "recommended", 1, 100); ok {
		t.Error("content 100 flagged")
	}

	if err := s.Unflag(ctx, f); err != nil {
		t.Fatalf("Unflag() error = %v", err)
	}
	if ok, _ := s.IsFlagged(ctx, "recommended", 1, 10); ok {
		t.Error("still flagged after Unflag()")
	}
	if err := s.Unflag(ctx, f); err != nil {
		t.Errorf("second Unflag() error = %v", err)
	}
}

func TestStore_FlagUnknownType(t *testing.T) {
	s := openTestStore(t)
	f := flag(1, 10, "popular")
	f.FlagType = "missing"
	if err := s.Flag(context.Background(), f); err == nil {
		t.Error("Flag() with unknown type succeeded")
	}
}

func TestStore_FlagsByPlugin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Content ids out of key order so insertion order is observable.
	for _, f := range []*recommend.Flag{
		flag(1, 30, "popular"),
		flag(1, 10, "new"),
		flag(1, 20, "popular"),
		flag(2, 15, "popular"),
		flag(11, 40, "popular"),
	} {
		if err := s.Flag(ctx, f); err != nil {
			t.Fatalf("Flag() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		user   int64
		plugin string
		want   []int64
	}{
		{name: "by plugin", user: 1, plugin: "popular", want: []int64{30, 20}},
		{name: "all plugins", user: 1, plugin: "", want: []int64{30, 10, 20}},
		{name: "other user", user: 2, plugin: "", want: []int64{15}},
		{name: "no prefix bleed", user: 11, plugin: "", want: []int64{40}},
		{name: "no flags", user: 3, plugin: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FlagsByPlugin(ctx, "recommended", tt.user, tt.plugin)
			if err != nil {
				t.Fatalf("FlagsByPlugin() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FlagsByPlugin() returned %d flags, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ContentID != tt.want[i] {
					t.Errorf("flag[%d] = %d, want %d", i, got[i].ContentID, tt.want[i])
				}
			}
		})
	}

	// Reflagging moves the flag to the end.
	if err := s.Flag(ctx, flag(1, 30, "popular")); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	got, _ := s.FlagsByPlugin(ctx, "recommended", 1, "")
	if len(got) != 3 || got[2].ContentID != 30 {
		t.Errorf("after reflag order = %+v", got)
	}
}

func TestStore_UnflagAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, f := range []*recommend.Flag{
		flag(1, 10, "popular"),
		flag(1, 11, "new"),
		flag(2, 10, "popular"),
	} {
		if err := s.Flag(ctx, f); err != nil {
			t.Fatalf("Flag() error = %v", err)
		}
	}

	n, err := s.UnflagAll(ctx, "recommended", "popular")
	if err != nil {
		t.Fatalf("UnflagAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("UnflagAll() = %d, want 2", n)
	}
	if ok, _ := s.IsFlagged(ctx, "recommended", 1, 11); !ok {
		t.Error("flag of another plugin was removed")
	}
	if n, _ := s.UnflagAll(ctx, "recommended", "popular"); n != 0 {
		t.Errorf("second UnflagAll() = %d, want 0", n)
	}
}

func TestStore_Checkpoints(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LastRun("history_cleanup"); err != nil || ok {
		t.Fatalf("LastRun() on empty store = %v, %v", ok, err)
	}
	at := time.Date(2026, 1, 5, 12, 0, 0, 123, time.UTC)
	if err := s.RecordRun("history_cleanup", at); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	got, ok, err := s.LastRun("history_cleanup")
	if err != nil || !ok {
		t.Fatalf("LastRun() = %v, %v", ok, err)
	}
	if !got.Equal(at) {
		t.Errorf("LastRun() = %v, want %v", got, at)
	}
}

func TestStore_Closed(t *testing.T) {
	s := openTestStore(t)
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() in memory error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	ctx := context.Background()
	if err := s.Flag(ctx, flag(1, 10, "popular")); !errors.Is(err, ErrClosed) {
		t.Errorf("Flag() after Close error = %v, want ErrClosed", err)
	}
	if _, err := s.FlagsByPlugin(ctx, "recommended", 1, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("FlagsByPlugin() after Close error = %v, want ErrClosed", err)
	}
	if err := s.RecordRun("x", time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordRun() after Close error = %v, want ErrClosed", err)
	}
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.FlagsConfig{Path: dir, Types: map[string][]string{"recommended": nil}}
	ctx := context.Background()

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Flag(ctx, flag(1, 10, "popular")); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if err := s.Flag(ctx, flag(1, 5, "popular")); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	got, err := s.FlagsByPlugin(ctx, "recommended", 1, "")
	if err != nil {
		t.Fatalf("FlagsByPlugin() error = %v", err)
	}
	if len(got) != 2 || got[0].ContentID != 10 || got[1].ContentID != 5 {
		t.Errorf("FlagsByPlugin() after reopen = %+v", got)
	}
}
