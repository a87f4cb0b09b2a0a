// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/recommender/internal/metrics"
	"github.com/tomtom215/recommender/internal/recommend"
)

var (
	errKindConflict = errors.New("transaction_conflict")
	errKindTimeout  = errors.New("timeout")
	errKindCanceled = errors.New("canceled")
	errKindOther    = errors.New("query_failed")
)

// observe records the duration and outcome of a store call. Lookups that
// find nothing and lost claims are not failures. Error messages carry ids,
// so they are reduced to a small set of kinds before becoming labels.
func observe(operation, table string, start time.Time, errp *error) {
	var kind error
	if errp != nil && *errp != nil {
		err := *errp
		switch {
		case errors.Is(err, recommend.ErrNotFound), errors.Is(err, recommend.ErrUserNotFound), errors.Is(err, recommend.ErrRunLost):
		case errors.Is(err, context.DeadlineExceeded):
			kind = errKindTimeout
		case errors.Is(err, context.Canceled):
			kind = errKindCanceled
		case isTransactionConflict(err):
			kind = errKindConflict
		default:
			kind = errKindOther
		}
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), kind)
}

// ensureContext adds a 30 second timeout when ctx has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// GetDatabasePath returns the path to the database file.
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}

// RecordCounts is a row count summary of the pipeline tables.
type RecordCounts struct {
	Statuses   int64 `json:"statuses"`
	Candidates int64 `json:"candidates"`
	Scores     int64 `json:"scores"`
	History    int64 `json:"history"`
}

// GetRecordCounts returns the row counts of the pipeline tables.
func (db *DB) GetRecordCounts(ctx context.Context) (*RecordCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c RecordCounts
	err := db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM recommendation_status),
		(SELECT COUNT(*) FROM recommendation_candidate),
		(SELECT COUNT(*) FROM recommendation_score),
		(SELECT COUNT(*) FROM recommendation_history)`).Scan(&c.Statuses, &c.Candidates, &c.Scores, &c.History)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return &c, nil
}

// utc normalizes t for storage in a naive TIMESTAMP column.
func utc(t time.Time) time.Time {
	return t.UTC()
}
