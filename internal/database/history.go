// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/recommender/internal/recommend"
)

// AppendHistory inserts e and sets its id.
func (db *DB) AppendHistory(ctx context.Context, e *recommend.HistoryEntry) (err error) {
	defer observe("insert", "recommendation_history", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `INSERT INTO recommendation_history
		(user_id, content_id, plugin_id, score, reason, created)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.UserID, e.ContentID, e.PluginID, e.Score, e.Reason, utc(e.Created)).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append history for user %d: %w", e.UserID, err)
	}
	return nil
}

// PurgeHistory deletes at most limit of the oldest rows created before
// cutoff.
func (db *DB) PurgeHistory(ctx context.Context, cutoff time.Time, limit int) (_ int64, err error) {
	defer observe("purge", "recommendation_history", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_history WHERE id IN (
		SELECT id FROM recommendation_history WHERE created < ? ORDER BY id LIMIT ?)`,
		utc(cutoff), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return n, nil
}

// HistoryFor returns the user's history, newest first.
func (db *DB) HistoryFor(ctx context.Context, userID int64, limit int) ([]recommend.HistoryEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	q := `SELECT id, user_id, content_id, plugin_id, score, reason, created
		FROM recommendation_history WHERE user_id = ? ORDER BY created DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out, err := queryAndScan(ctx, db.conn, q, args, func(rows *sql.Rows) (recommend.HistoryEntry, error) {
		var e recommend.HistoryEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.ContentID, &e.PluginID, &e.Score, &e.Reason, &e.Created)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history for user %d: %w", userID, err)
	}
	return out, nil
}
