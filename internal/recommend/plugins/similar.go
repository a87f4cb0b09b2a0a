// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/recommender/internal/recommend"
)

// maxSimilarPerCompletion caps how many new items one completion yields.
const maxSimilarPerCompletion = 3

// SimilarContent nominates content similar to what the user completed,
// newest completion first. Scores are normalized by the best similarity.
type SimilarContent struct {
	recommend.Base
	catalog recommend.Catalog
}

// NewSimilarContent is the similar_content factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewSimilarContent(env recommend.Env, catalog recommend.Catalog) (*SimilarContent, error) {
	if catalog == nil {
		return nil, errors.New("similar_content: catalog is required")
	}
	return &SimilarContent{Base: recommend.NewBase(env), catalog: catalog}, nil
}

func (p *SimilarContent) GenerateCandidates(ctx context.Context, user *recommend.User) ([]recommend.Content, error) {
	completions, err := p.catalog.Completions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("completions: %w", err)
	}
	if len(completions) == 0 {
		return nil, nil
	}
	completed := make(map[int64]bool, len(completions))
	for _, id := range completions {
		completed[id] = true
	}

	want := p.NumberCandidates()
	var found []recommend.Content
	scores := make(map[int64]float64)

	for _, completionID := range completions {
		similar, err := p.catalog.SimilarContent(ctx, completionID, user.Languages(), want)
		if err != nil {
			p.Logger().Warn().Err(err).Int64("content_id", completionID).Msg("similar content lookup failed")
			continue
		}

		fromThis := 0
		for _, s := range similar {
			if completed[s.Content.ID] {
				continue
			}
			item := s.Content
			if item.ParentID != 0 {
				parent, err := p.catalog.Content(ctx, item.ParentID)
				if err == nil {
					item = *parent
				} else if !errors.Is(err, recommend.ErrNotFound) {
					return nil, fmt.Errorf("parent content %d: %w", item.ParentID, err)
				}
			}

			if prev, seen := scores[item.ID]; seen {
				if s.Score > prev {
					scores[item.ID] = s.Score
				}
				continue
			}
			scores[item.ID] = s.Score
			found = append(found, item)
			fromThis++
			if fromThis >= maxSimilarPerCompletion {
				break
			}
		}
		if len(found) >= want {
			break
		}
	}
	if len(found) == 0 {
		return nil, nil
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	reason := p.Reason("similar to content you’ve completed")
	for i := range found {
		normalized := 0.0
		if maxScore > 0 {
			normalized = scores[found[i].ID] / maxScore
		}
		if err := p.Stash(ctx, user.ID, found[i].ID, normalized, reason); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (p *SimilarContent) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) error {
	return p.Confirm(ctx, set, user)
}
