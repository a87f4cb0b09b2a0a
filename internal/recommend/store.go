// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"time"
)

// Note: This package has no dependencies on the storage packages. The
// interfaces below are implemented by internal/database (DuckDB),
// internal/flags (badger) and the in-memory store used by tests.

// StatusStore persists the per-user state machine.
type StatusStore interface {
	// GetStatus returns ErrNotFound when the user has no record.
	GetStatus(ctx context.Context, userID int64) (*UserStatus, error)

	// EnqueueStatus creates the record as QUEUED, or moves an idle record to
	// QUEUED with priority. A record owned by a run keeps its status and
	// remembers the request instead, so ReleaseRun queues it again.
	EnqueueStatus(ctx context.Context, userID int64, priority int, now time.Time) error

	// ClaimRun sets run_id to runID when the record is idle or its owner's
	// lease started before leaseCutoff. It reports whether the claim won.
	ClaimRun(ctx context.Context, userID int64, runID string, now, leaseCutoff time.Time) (bool, error)

	// SaveRunStatus writes st if st.RunID still owns the record, else
	// returns ErrRunLost.
	SaveRunStatus(ctx context.Context, st *UserStatus) error

	// ReleaseRun clears run_id if runID still owns the record. A request
	// that arrived while the run owned it moves the record back to QUEUED
	// with the highest priority requested.
	ReleaseRun(ctx context.Context, userID int64, runID string) error

	// DueStatuses returns up to limit records in statuses whose updated is
	// null or before updatedBefore, highest priority first.
	DueStatuses(ctx context.Context, statuses []Status, updatedBefore time.Time, limit int) ([]UserStatus, error)

	// MarkStale moves READY records updated before cutoff to STALE.
	MarkStale(ctx context.Context, cutoff, now time.Time) (int64, error)

	// ListStatuses returns up to limit records, most recently changed first.
	ListStatuses(ctx context.Context, limit int) ([]UserStatus, error)

	DeleteStatus(ctx context.Context, userID int64) error
	DeleteAllStatuses(ctx context.Context) error
}

// CandidateStore persists candidates across runs.
type CandidateStore interface {
	// GetOrCreateCandidate loads the (user, content) candidate or creates a
	// queued one. The returned candidate carries content.
	GetOrCreateCandidate(ctx context.Context, userID int64, content Content, now time.Time) (*Candidate, error)

	// SaveCandidate writes status, score, reason and the score references.
	SaveCandidate(ctx context.Context, c *Candidate) error

	DeleteCandidates(ctx context.Context, userID int64) error
	DeleteAllCandidates(ctx context.Context) error
}

// ScoreStore persists per-plugin scores keyed by (user, content, plugin).
type ScoreStore interface {
	UpsertScore(ctx context.Context, s *PluginScore) error

	// GetScore returns ErrNotFound when no score exists.
	GetScore(ctx context.Context, userID, contentID int64, pluginID string) (*PluginScore, error)

	DeleteScores(ctx context.Context, userID int64) error
	DeleteAllScores(ctx context.Context) error
	DeletePluginScores(ctx context.Context, pluginID string) (int64, error)
}

// HistoryStore is the append-only log of published recommendations.
type HistoryStore interface {
	AppendHistory(ctx context.Context, e *HistoryEntry) error

	// PurgeHistory deletes at most limit rows created before cutoff.
	PurgeHistory(ctx context.Context, cutoff time.Time, limit int) (int64, error)

	HistoryFor(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
}

// Store bundles the persistence the pipeline owns.
type Store interface {
	StatusStore
	CandidateStore
	ScoreStore
	HistoryStore
}

// UserDirectory resolves users.
type UserDirectory interface {
	// GetUser returns ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// ActiveUsers returns ids of every active user.
	ActiveUsers(ctx context.Context) ([]int64, error)
}

// FlagSink stores published recommendations.
type FlagSink interface {
	FlagTypeExists(ctx context.Context, flagType string) (bool, error)

	// Applies reports whether flagType may be placed on contentType.
	Applies(flagType, contentType string) bool

	IsFlagged(ctx context.Context, flagType string, userID, contentID int64) (bool, error)

	// GetFlagging returns ErrNotFound when the content is not flagged.
	GetFlagging(ctx context.Context, flagType string, userID, contentID int64) (*Flag, error)

	Flag(ctx context.Context, f *Flag) error
	Unflag(ctx context.Context, f *Flag) error

	// FlagsByPlugin returns the user's flags written by pluginID, or all of
	// the user's flags of flagType when pluginID is empty.
	FlagsByPlugin(ctx context.Context, flagType string, userID int64, pluginID string) ([]Flag, error)

	// UnflagAll removes every flag of flagType written by pluginID.
	UnflagAll(ctx context.Context, flagType, pluginID string) (int, error)
}

// EventSink receives notifications about pipeline output. Failures are
// logged by the caller and never abort a run.
type EventSink interface {
	RecommendationPublished(ctx context.Context, f *Flag) error
	RunCompleted(ctx context.Context, st *UserStatus) error
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) RecommendationPublished(context.Context, *Flag) error { return nil }
func (NopEvents) RunCompleted(context.Context, *UserStatus) error      { return nil }
