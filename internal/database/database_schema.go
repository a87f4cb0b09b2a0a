// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package database

import (
	"context"
	"fmt"
	"time"
)

// Timestamps are stored as naive TIMESTAMP values in UTC so that no ICU
// extension is required.

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) getTableCreationQueries() []string {
	return []string{
		// Pipeline state.
		`CREATE TABLE IF NOT EXISTS recommendation_status (
			user_id BIGINT PRIMARY KEY,
			status TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			updated TIMESTAMP,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			retrieved INTEGER NOT NULL DEFAULT 0,
			created TIMESTAMP NOT NULL,
			changed TIMESTAMP NOT NULL,
			run_id TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS recommendation_candidate (
			user_id BIGINT NOT NULL,
			content_id BIGINT NOT NULL,
			status TEXT NOT NULL,
			score DOUBLE NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			score_refs TEXT NOT NULL DEFAULT '[]',
			changed TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, content_id)
		);`,
		`CREATE TABLE IF NOT EXISTS recommendation_score (
			user_id BIGINT NOT NULL,
			content_id BIGINT NOT NULL,
			plugin_id TEXT NOT NULL,
			score DOUBLE NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			updated TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, content_id, plugin_id)
		);`,
		`CREATE SEQUENCE IF NOT EXISTS recommendation_history_seq START 1;`,
		`CREATE TABLE IF NOT EXISTS recommendation_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('recommendation_history_seq'),
			user_id BIGINT NOT NULL,
			content_id BIGINT NOT NULL,
			plugin_id TEXT NOT NULL,
			score DOUBLE NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL
		);`,

		// Catalog mirror of the content platform.
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS content (
			id BIGINT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT 'und',
			topic_id BIGINT NOT NULL DEFAULT 0,
			parent_id BIGINT NOT NULL DEFAULT 0,
			published BOOLEAN NOT NULL DEFAULT TRUE,
			changed TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS content_views (
			content_id BIGINT PRIMARY KEY,
			views BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS content_completions (
			user_id BIGINT NOT NULL,
			content_id BIGINT NOT NULL,
			completed TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, content_id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_interests (
			user_id BIGINT NOT NULL,
			topic_id BIGINT NOT NULL,
			PRIMARY KEY (user_id, topic_id)
		);`,
		`CREATE TABLE IF NOT EXISTS content_similarity (
			content_id BIGINT NOT NULL,
			similar_id BIGINT NOT NULL,
			score DOUBLE NOT NULL,
			PRIMARY KEY (content_id, similar_id)
		);`,
	}
}

// createIndexes creates secondary indexes. Only the append-only history
// table is indexed: DuckDB cannot upsert rows of tables with secondary
// indexes on the updated columns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_history_created ON recommendation_history(created);`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON recommendation_history(user_id);`,
	}
}
