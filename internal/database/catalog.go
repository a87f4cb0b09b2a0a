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

	"github.com/tomtom215/recommender/internal/database/query"
	"github.com/tomtom215/recommender/internal/recommend"
)

const contentColumns = `c.id, c.type, c.title, c.language, c.topic_id, c.parent_id, c.published, c.changed`

func scanContent(rows *sql.Rows) (recommend.Content, error) {
	var c recommend.Content
	err := rows.Scan(&c.ID, &c.Type, &c.Title, &c.Language, &c.TopicID, &c.ParentID, &c.Published, &c.Changed)
	return c, err
}

// publishedWhere matches published content in one of langs.
func publishedWhere(langs []string) *query.WhereBuilder {
	return query.NewWhereBuilder().
		AddClause("c.published = TRUE").
		AddStrings("c.language", langs)
}

func (db *DB) listContent(ctx context.Context, q string, args []interface{}) ([]recommend.Content, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return queryAndScan(ctx, db.conn, q, args, scanContent)
}

func withLimit(q string, args []interface{}, limit int) (string, []interface{}) {
	if limit > 0 {
		return q + ` LIMIT ?`, append(args, limit)
	}
	return q, args
}

// Content returns a content item whether or not it is published.
func (db *DB) Content(ctx context.Context, id int64) (*recommend.Content, error) {
	items, err := db.listContent(ctx, `SELECT `+contentColumns+` FROM content c WHERE c.id = ?`, []interface{}{id})
	if err != nil {
		return nil, fmt.Errorf("failed to load content %d: %w", id, err)
	}
	if len(items) == 0 {
		return nil, recommend.ErrNotFound
	}
	return &items[0], nil
}

// RecentContent returns published content, newest first.
func (db *DB) RecentContent(ctx context.Context, langs []string, limit int) ([]recommend.Content, error) {
	where, args := publishedWhere(langs).BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM content c `+where+` ORDER BY c.changed DESC, c.id`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent content: %w", err)
	}
	return items, nil
}

// PopularContent returns viewed published content by descending views.
func (db *DB) PopularContent(ctx context.Context, langs []string, limit int) ([]recommend.Content, error) {
	where, args := publishedWhere(langs).AddClause("v.views > 0").BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM content c
		JOIN content_views v ON v.content_id = c.id `+where+` ORDER BY v.views DESC, c.id`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load popular content: %w", err)
	}
	return items, nil
}

// RandomContent returns published content in random order.
func (db *DB) RandomContent(ctx context.Context, limit int) ([]recommend.Content, error) {
	where, args := publishedWhere(nil).BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM content c `+where+` ORDER BY random()`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load random content: %w", err)
	}
	return items, nil
}

// TopicContent returns top level published content of types tagged with
// one of topics, in random order.
func (db *DB) TopicContent(ctx context.Context, topics []int64, types []string, exclude []int64, limit int) ([]recommend.Content, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	where, args := publishedWhere(nil).
		AddInt64s("c.topic_id", topics).
		AddClause("c.parent_id = 0").
		AddStrings("c.type", types).
		AddNotInt64s("c.id", exclude).
		BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM content c `+where+` ORDER BY random()`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic content: %w", err)
	}
	return items, nil
}

// SimilarContent returns published content similar to contentID, most
// similar first.
func (db *DB) SimilarContent(ctx context.Context, contentID int64, langs []string, limit int) ([]recommend.SimilarContent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := publishedWhere(langs).AddClause("s.content_id = ?", contentID).BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+`, s.score FROM content_similarity s
		JOIN content c ON c.id = s.similar_id `+where+` ORDER BY s.score DESC, c.id`, args, limit)
	items, err := queryAndScan(ctx, db.conn, q, args, func(rows *sql.Rows) (recommend.SimilarContent, error) {
		var s recommend.SimilarContent
		c := &s.Content
		err := rows.Scan(&c.ID, &c.Type, &c.Title, &c.Language, &c.TopicID, &c.ParentID, &c.Published, &c.Changed, &s.Score)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load content similar to %d: %w", contentID, err)
	}
	return items, nil
}

// PadContent returns published content the user has not completed.
func (db *DB) PadContent(ctx context.Context, userID int64, langs []string, limit int) ([]recommend.Content, error) {
	where, args := publishedWhere(langs).
		AddClause("NOT EXISTS (SELECT 1 FROM content_completions cc WHERE cc.user_id = ? AND cc.content_id = c.id)", userID).
		BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM content c `+where+` ORDER BY c.id`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load pad content: %w", err)
	}
	return items, nil
}

// ReviewContent returns the user's published review material, earliest due
// first.
func (db *DB) ReviewContent(ctx context.Context, userID int64, limit int) ([]recommend.Content, error) {
	where, args := publishedWhere(nil).AddClause("r.user_id = ?", userID).BuildWithPrefix()
	q, args := withLimit(`SELECT `+contentColumns+` FROM review_material r
		JOIN content c ON c.id = r.content_id `+where+` ORDER BY r.due, c.id`, args, limit)
	items, err := db.listContent(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to load review content: %w", err)
	}
	return items, nil
}

// UserInterests returns the topic ids the user follows.
func (db *DB) UserInterests(ctx context.Context, userID int64) ([]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ids, err := queryAndScan(ctx, db.conn, `SELECT topic_id FROM user_interests WHERE user_id = ? ORDER BY topic_id`,
		[]interface{}{userID}, scanInt64)
	if err != nil {
		return nil, fmt.Errorf("failed to load interests of user %d: %w", userID, err)
	}
	return ids, nil
}

// Completions returns ids of content the user completed, newest first.
func (db *DB) Completions(ctx context.Context, userID int64) ([]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ids, err := queryAndScan(ctx, db.conn, `SELECT content_id FROM content_completions WHERE user_id = ?
		ORDER BY completed DESC, content_id`, []interface{}{userID}, scanInt64)
	if err != nil {
		return nil, fmt.Errorf("failed to load completions of user %d: %w", userID, err)
	}
	return ids, nil
}

// GetUser returns the user or recommend.ErrUserNotFound.
func (db *DB) GetUser(ctx context.Context, userID int64) (*recommend.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var u recommend.User
	err := db.conn.QueryRowContext(ctx, `SELECT id, name, language, active FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Language, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return &u, nil
}

// ActiveUsers returns the ids of active users in ascending order.
func (db *DB) ActiveUsers(ctx context.Context) ([]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ids, err := queryAndScan(ctx, db.conn, `SELECT id FROM users WHERE active = TRUE ORDER BY id`, nil, scanInt64)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return ids, nil
}

var (
	_ recommend.Store         = (*DB)(nil)
	_ recommend.Catalog       = (*DB)(nil)
	_ recommend.UserDirectory = (*DB)(nil)
)
