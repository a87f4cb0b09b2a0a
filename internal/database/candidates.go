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

	"github.com/goccy/go-json"

	"github.com/tomtom215/recommender/internal/recommend"
)

// GetOrCreateCandidate loads the (user, content) candidate with its
// referenced scores, creating a queued candidate when none exists.
func (db *DB) GetOrCreateCandidate(ctx context.Context, userID int64, content recommend.Content, now time.Time) (_ *recommend.Candidate, err error) {
	defer observe("get_or_create", "recommendation_candidate", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	c := &recommend.Candidate{UserID: userID, ContentID: content.ID, Content: content}
	var (
		status string
		refs   string
	)
	err = db.conn.QueryRowContext(ctx, `SELECT status, score, reason, score_refs, changed
		FROM recommendation_candidate WHERE user_id = ? AND content_id = ?`, userID, content.ID).
		Scan(&status, &c.Score, &c.Reason, &refs, &c.Changed)
	if errors.Is(err, sql.ErrNoRows) {
		c.Status = recommend.CandidateQueued
		c.Changed = now
		err = withRetry(ctx, func(ctx context.Context) error {
			_, err := db.conn.ExecContext(ctx, `INSERT INTO recommendation_candidate
				(user_id, content_id, status, score, reason, score_refs, changed)
				VALUES (?, ?, ?, 0, '', '[]', ?)
				ON CONFLICT DO NOTHING`,
				userID, content.ID, string(c.Status), utc(now))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create candidate %d/%d: %w", userID, content.ID, err)
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate %d/%d: %w", userID, content.ID, err)
	}
	c.Status = recommend.CandidateStatus(status)

	var pluginIDs []string
	if err := json.Unmarshal([]byte(refs), &pluginIDs); err != nil {
		return nil, fmt.Errorf("failed to decode score refs of candidate %d/%d: %w", userID, content.ID, err)
	}
	if c.Scores, err = db.referencedScores(ctx, userID, content.ID, pluginIDs); err != nil {
		return nil, err
	}
	return c, nil
}

// referencedScores loads the scores named by pluginIDs in that order.
// References to deleted scores are dropped.
func (db *DB) referencedScores(ctx context.Context, userID, contentID int64, pluginIDs []string) ([]recommend.PluginScore, error) {
	if len(pluginIDs) == 0 {
		return nil, nil
	}
	scores, err := queryAndScan(ctx, db.conn, `SELECT `+scoreColumns+`
		FROM recommendation_score WHERE user_id = ? AND content_id = ?`,
		[]interface{}{userID, contentID}, scanScore)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores of candidate %d/%d: %w", userID, contentID, err)
	}
	byPlugin := make(map[string]recommend.PluginScore, len(scores))
	for _, s := range scores {
		byPlugin[s.PluginID] = s
	}
	out := make([]recommend.PluginScore, 0, len(pluginIDs))
	for _, id := range pluginIDs {
		if s, ok := byPlugin[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// SaveCandidate writes the candidate's status, score, reason and score
// references. Score values are written by UpsertScore.
func (db *DB) SaveCandidate(ctx context.Context, c *recommend.Candidate) (err error) {
	defer observe("upsert", "recommendation_candidate", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	refs, err := json.Marshal(c.ScoreRefs())
	if err != nil {
		return fmt.Errorf("failed to encode score refs: %w", err)
	}
	err = withRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO recommendation_candidate
			(user_id, content_id, status, score, reason, score_refs, changed)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.UserID, c.ContentID, string(c.Status), c.Score, c.Reason, string(refs), utc(c.Changed))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save candidate %d/%d: %w", c.UserID, c.ContentID, err)
	}
	return nil
}

// DeleteCandidates removes the user's candidates.
func (db *DB) DeleteCandidates(ctx context.Context, userID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_candidate WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete candidates for user %d: %w", userID, err)
	}
	return nil
}

// DeleteAllCandidates removes every candidate.
func (db *DB) DeleteAllCandidates(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_candidate`); err != nil {
		return fmt.Errorf("failed to delete candidates: %w", err)
	}
	return nil
}
