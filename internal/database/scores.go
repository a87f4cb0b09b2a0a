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

	"github.com/tomtom215/recommender/internal/recommend"
)

const scoreColumns = `user_id, content_id, plugin_id, score, reason, status, updated`

func scanScore(rows *sql.Rows) (recommend.PluginScore, error) {
	var (
		ps     recommend.PluginScore
		status string
	)
	err := rows.Scan(&ps.UserID, &ps.ContentID, &ps.PluginID, &ps.Score, &ps.Reason, &status, &ps.Updated)
	ps.Status = recommend.ScoreStatus(status)
	return ps, err
}

// UpsertScore writes a plugin's score for a candidate.
func (db *DB) UpsertScore(ctx context.Context, ps *recommend.PluginScore) (err error) {
	defer observe("upsert", "recommendation_score", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = withRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO recommendation_score (`+scoreColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ps.UserID, ps.ContentID, ps.PluginID, ps.Score, ps.Reason, string(ps.Status), utc(ps.Updated))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert score %s/%d/%d: %w", ps.PluginID, ps.UserID, ps.ContentID, err)
	}
	return nil
}

// GetScore returns a plugin's score for a candidate.
func (db *DB) GetScore(ctx context.Context, userID, contentID int64, pluginID string) (_ *recommend.PluginScore, err error) {
	defer observe("select", "recommendation_score", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		ps     recommend.PluginScore
		status string
	)
	err = db.conn.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM recommendation_score
		WHERE user_id = ? AND content_id = ? AND plugin_id = ?`, userID, contentID, pluginID).
		Scan(&ps.UserID, &ps.ContentID, &ps.PluginID, &ps.Score, &ps.Reason, &status, &ps.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score %s/%d/%d: %w", pluginID, userID, contentID, err)
	}
	ps.Status = recommend.ScoreStatus(status)
	return &ps, nil
}

// DeleteScores removes the user's scores.
func (db *DB) DeleteScores(ctx context.Context, userID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_score WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete scores for user %d: %w", userID, err)
	}
	return nil
}

// DeleteAllScores removes every score.
func (db *DB) DeleteAllScores(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_score`); err != nil {
		return fmt.Errorf("failed to delete scores: %w", err)
	}
	return nil
}

// DeletePluginScores removes every score written by pluginID.
func (db *DB) DeletePluginScores(ctx context.Context, pluginID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_score WHERE plugin_id = ?`, pluginID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scores of plugin %s: %w", pluginID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n, nil
}
