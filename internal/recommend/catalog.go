// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import "context"

// SimilarContent is a content item with its similarity to a reference item.
type SimilarContent struct {
	Content Content
	Score   float64
}

// Catalog is the read-only view of the content platform used by the
// built-in plugins. Only published content is ever returned. langs limits
// results to content in one of the given language codes; nil means any.
type Catalog interface {
	// Content returns ErrNotFound for unknown ids.
	Content(ctx context.Context, id int64) (*Content, error)

	// RecentContent returns content newest first.
	RecentContent(ctx context.Context, langs []string, limit int) ([]Content, error)

	// PopularContent returns content by descending view count.
	PopularContent(ctx context.Context, langs []string, limit int) ([]Content, error)

	// RandomContent returns content in random order.
	RandomContent(ctx context.Context, limit int) ([]Content, error)

	// TopicContent returns top level content of the given types tagged with
	// one of topics, in random order, skipping the excluded ids.
	TopicContent(ctx context.Context, topics []int64, types []string, exclude []int64, limit int) ([]Content, error)

	// SimilarContent returns content similar to contentID, most similar
	// first.
	SimilarContent(ctx context.Context, contentID int64, langs []string, limit int) ([]SimilarContent, error)

	// PadContent returns general content used to fill short lists.
	PadContent(ctx context.Context, userID int64, langs []string, limit int) ([]Content, error)

	// ReviewContent returns content the user should revisit.
	ReviewContent(ctx context.Context, userID int64, limit int) ([]Content, error)

	// UserInterests returns the topic ids the user follows.
	UserInterests(ctx context.Context, userID int64) ([]int64, error)

	// Completions returns ids of content the user completed, newest first.
	Completions(ctx context.Context, userID int64) ([]int64, error)
}
