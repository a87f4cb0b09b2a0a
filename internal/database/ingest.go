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

	"github.com/tomtom215/recommender/internal/database/query"
	"github.com/tomtom215/recommender/internal/recommend"
)

// ViewCount is the total view count of a content item.
type ViewCount struct {
	ContentID int64 `json:"content_id" validate:"required"`
	Views     int64 `json:"views" validate:"gte=0"`
}

// Completion records that a user completed a content item.
type Completion struct {
	UserID    int64     `json:"user_id" validate:"required"`
	ContentID int64     `json:"content_id" validate:"required"`
	Completed time.Time `json:"completed" validate:"required"`
}

// Interests replaces the topics a user follows.
type Interests struct {
	UserID int64   `json:"user_id" validate:"required"`
	Topics []int64 `json:"topics"`
}

// Similarity links a content item to a similar one.
type Similarity struct {
	ContentID int64   `json:"content_id" validate:"required"`
	SimilarID int64   `json:"similar_id" validate:"required,nefield=ContentID"`
	Score     float64 `json:"score" validate:"gte=0"`
}

// ReviewItem schedules a content item for review by a user.
type ReviewItem struct {
	UserID    int64     `json:"user_id" validate:"required"`
	ContentID int64     `json:"content_id" validate:"required"`
	Due       time.Time `json:"due" validate:"required"`
}

// CatalogBatch is a set of catalog changes applied in one transaction.
type CatalogBatch struct {
	Users       []recommend.User    `json:"users" validate:"dive"`
	Content     []recommend.Content `json:"content" validate:"dive"`
	Views       []ViewCount         `json:"views" validate:"dive"`
	Completions []Completion        `json:"completions" validate:"dive"`
	Interests   []Interests         `json:"interests" validate:"dive"`
	Similarity  []Similarity        `json:"similarity" validate:"dive"`
	Review      []ReviewItem        `json:"review" validate:"dive"`
}

// Size returns the number of rows in the batch.
func (b *CatalogBatch) Size() int {
	n := len(b.Users) + len(b.Content) + len(b.Views) + len(b.Completions) + len(b.Similarity) + len(b.Review)
	for _, in := range b.Interests {
		n += len(in.Topics)
	}
	return n
}

// ImportCatalog upserts the batch.
func (db *DB) ImportCatalog(ctx context.Context, b *CatalogBatch) (err error) {
	defer observe("import", "catalog", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return withRetry(ctx, func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		steps := []struct {
			name string
			fn   func(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error
		}{
			{"users", importUsers},
			{"content", importContent},
			{"views", importViews},
			{"completions", importCompletions},
			{"interests", importInterests},
			{"similarity", importSimilarity},
			{"review", importReview},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx, b); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return tx.Commit()
	})
}

func importUsers(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, u := range b.Users {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO users (id, name, language, active) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Language, u.Active); err != nil {
			return err
		}
	}
	return nil
}

func importContent(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, c := range b.Content {
		lang := c.Language
		if lang == "" {
			lang = "und"
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO content
			(id, type, title, language, topic_id, parent_id, published, changed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Type, c.Title, lang, c.TopicID, c.ParentID, c.Published, utc(c.Changed)); err != nil {
			return err
		}
	}
	return nil
}

func importViews(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, v := range b.Views {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO content_views (content_id, views) VALUES (?, ?)`,
			v.ContentID, v.Views); err != nil {
			return err
		}
	}
	return nil
}

func importCompletions(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, c := range b.Completions {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO content_completions (user_id, content_id, completed) VALUES (?, ?, ?)`,
			c.UserID, c.ContentID, utc(c.Completed)); err != nil {
			return err
		}
	}
	return nil
}

// importInterests replaces each listed user's topics. Topics that stay are
// left in place rather than deleted and reinserted.
func importInterests(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, in := range b.Interests {
		where, args := query.NewWhereBuilder().
			AddClause("user_id = ?", in.UserID).
			AddNotInt64s("topic_id", in.Topics).
			BuildWithPrefix()
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_interests `+where, args...); err != nil {
			return err
		}
		for _, topic := range in.Topics {
			if _, err := tx.ExecContext(ctx, `INSERT INTO user_interests (user_id, topic_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
				in.UserID, topic); err != nil {
				return err
			}
		}
	}
	return nil
}

func importSimilarity(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, s := range b.Similarity {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO content_similarity (content_id, similar_id, score) VALUES (?, ?, ?)`,
			s.ContentID, s.SimilarID, s.Score); err != nil {
			return err
		}
	}
	return nil
}

func importReview(ctx context.Context, tx *sql.Tx, b *CatalogBatch) error {
	for _, r := range b.Review {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO review_material (user_id, content_id, due) VALUES (?, ?, ?)`,
			r.UserID, r.ContentID, utc(r.Due)); err != nil {
			return err
		}
	}
	return nil
}
