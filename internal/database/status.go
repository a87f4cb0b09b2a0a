// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/recommender/internal/database/query"
	"github.com/tomtom215/recommender/internal/recommend"
)

const statusColumns = `user_id, status, priority, updated, duration_ms, retrieved, created, changed, run_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStatus(row rowScanner) (*recommend.UserStatus, error) {
	var (
		st         recommend.UserStatus
		status     string
		updated    sql.NullTime
		durationMS int64
	)
	if err := row.Scan(&st.UserID, &status, &st.Priority, &updated, &durationMS, &st.Retrieved, &st.Created, &st.Changed, &st.RunID); err != nil {
		return nil, err
	}
	st.Status = recommend.Status(status)
	st.Duration = time.Duration(durationMS) * time.Millisecond
	if updated.Valid {
		u := updated.Time
		st.Updated = &u
	}
	return &st, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return utc(*t)
}

// GetStatus returns the user's status record.
func (db *DB) GetStatus(ctx context.Context, userID int64) (_ *recommend.UserStatus, err error) {
	defer observe("select", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM recommendation_status WHERE user_id = ?`, userID)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status for user %d: %w", userID, err)
	}
	return st, nil
}

// EnqueueStatus creates or requeues the user's record. A record owned by a
// run keeps its status; the request is kept in requeue_priority until the
// run releases it.
func (db *DB) EnqueueStatus(ctx context.Context, userID int64, priority int, now time.Time) (err error) {
	defer observe("upsert", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.lockUser(userID)()

	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var (
			runID   string
			pending sql.NullInt64
		)
		err = tx.QueryRowContext(ctx, `SELECT run_id, requeue_priority FROM recommendation_status WHERE user_id = ?`, userID).Scan(&runID, &pending)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `INSERT INTO recommendation_status (`+statusColumns+`)
				VALUES (?, ?, ?, NULL, 0, 0, ?, ?, '')`,
				userID, string(recommend.StatusQueued), priority, utc(now), utc(now))
		case err != nil:
			return fmt.Errorf("failed to read status for user %d: %w", userID, err)
		case runID != "":
			if !pending.Valid || int64(priority) > pending.Int64 {
				_, err = tx.ExecContext(ctx, `UPDATE recommendation_status SET requeue_priority = ? WHERE user_id = ?`, priority, userID)
			}
		default:
			_, err = tx.ExecContext(ctx, `UPDATE recommendation_status SET status = ?, priority = ?, changed = ? WHERE user_id = ?`,
				string(recommend.StatusQueued), priority, utc(now), userID)
		}
		if err != nil {
			return fmt.Errorf("failed to enqueue user %d: %w", userID, err)
		}
		return tx.Commit()
	})
}

// ClaimRun takes ownership of the record for runID when it is idle or its
// owner's lease started before leaseCutoff.
func (db *DB) ClaimRun(ctx context.Context, userID int64, runID string, now, leaseCutoff time.Time) (_ bool, err error) {
	defer observe("claim", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.lockUser(userID)()

	res, err := db.conn.ExecContext(ctx, `UPDATE recommendation_status SET run_id = ?, changed = ?
		WHERE user_id = ? AND (run_id = '' OR changed < ?)`,
		runID, utc(now), userID, utc(leaseCutoff))
	if isTransactionConflict(err) {
		// Another writer touched the row first; it owns the record.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	err = db.conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM recommendation_status WHERE user_id = ?)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check status for user %d: %w", userID, err)
	}
	if !exists {
		return false, recommend.ErrNotFound
	}
	return false, nil
}

// SaveRunStatus writes st when st.RunID still owns the record.
func (db *DB) SaveRunStatus(ctx context.Context, st *recommend.UserStatus) (err error) {
	defer observe("update", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.lockUser(st.UserID)()

	var n int64
	err = withRetry(ctx, func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, `UPDATE recommendation_status
			SET status = ?, priority = ?, updated = ?, duration_ms = ?, retrieved = ?, changed = ?
			WHERE user_id = ? AND run_id = ?`,
			string(st.Status), st.Priority, nullTime(st.Updated), st.Duration.Milliseconds(), st.Retrieved, utc(st.Changed),
			st.UserID, st.RunID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save status for user %d: %w", st.UserID, err)
	}
	if n == 0 {
		return recommend.ErrRunLost
	}
	return nil
}

// ReleaseRun clears run_id when runID still owns the record, queueing it
// again when a build was requested during the run.
func (db *DB) ReleaseRun(ctx context.Context, userID int64, runID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.lockUser(userID)()

	return withRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `UPDATE recommendation_status SET
				run_id = '',
				status = CASE WHEN requeue_priority IS NULL THEN status ELSE ? END,
				priority = COALESCE(requeue_priority, priority),
				requeue_priority = NULL
			WHERE user_id = ? AND run_id = ?`,
			string(recommend.StatusQueued), userID, runID)
		if err != nil {
			return fmt.Errorf("failed to release user %d: %w", userID, err)
		}
		return nil
	})
}

// DueStatuses returns records in statuses not updated since updatedBefore,
// highest priority first.
func (db *DB) DueStatuses(ctx context.Context, statuses []recommend.Status, updatedBefore time.Time, limit int) (_ []recommend.UserStatus, err error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	defer observe("select_due", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	wb := query.NewWhereBuilder().
		AddStrings("status", names).
		AddClause("(updated IS NULL OR updated < ?)", utc(updatedBefore))
	where, args := wb.BuildWithPrefix()

	q := `SELECT `+statusColumns+` FROM recommendation_status `+where+` ORDER BY priority DESC, user_id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out, err := queryAndScan(ctx, db.conn, q, args, scanStatusValue)
	if err != nil {
		return nil, fmt.Errorf("failed to list due statuses: %w", err)
	}
	return out, nil
}

// MarkStale moves READY records updated before cutoff to STALE.
func (db *DB) MarkStale(ctx context.Context, cutoff, now time.Time) (_ int64, err error) {
	defer observe("mark_stale", "recommendation_status", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	err = withRetry(ctx, func(ctx context.Context) error {
		res, err := db.conn.ExecContext(ctx, `UPDATE recommendation_status SET status = ?, changed = ?
			WHERE status = ? AND updated IS NOT NULL AND updated < ?`,
			string(recommend.StatusStale), utc(now), string(recommend.StatusReady), utc(cutoff))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale statuses: %w", err)
	}
	return n, nil
}

// ListStatuses returns records, most recently changed first.
func (db *DB) ListStatuses(ctx context.Context, limit int) ([]recommend.UserStatus, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	q := `SELECT `+statusColumns+` FROM recommendation_status ORDER BY changed DESC, user_id`
	var args []interface{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out, err := queryAndScan(ctx, db.conn, q, args, scanStatusValue)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return out, nil
}

// DeleteStatus removes the user's record.
func (db *DB) DeleteStatus(ctx context.Context, userID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.lockUser(userID)()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_status WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete status for user %d: %w", userID, err)
	}
	return nil
}

// DeleteAllStatuses removes every record.
func (db *DB) DeleteAllStatuses(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_status`); err != nil {
		return fmt.Errorf("failed to delete statuses: %w", err)
	}
	return nil
}

func scanStatusValue(rows *sql.Rows) (recommend.UserStatus, error) {
	st, err := scanStatus(rows)
	if err != nil {
		return recommend.UserStatus{}, err
	}
	return *st, nil
}
