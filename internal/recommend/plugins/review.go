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

// ReviewMaterial inserts content the user should revisit. Each item gets a
// random combined score within the range of the existing candidates so
// review items are spread across the list.
type ReviewMaterial struct {
	recommend.Base
	catalog recommend.Catalog
	rnd     *randSource
}

// NewReviewMaterial is the review_material factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewReviewMaterial(env recommend.Env, catalog recommend.Catalog, rnd *randSource) (*ReviewMaterial, error) {
	if catalog == nil {
		return nil, errors.New("review_material: catalog is required")
	}
	return &ReviewMaterial{Base: recommend.NewBase(env), catalog: catalog, rnd: rnd}, nil
}

func (p *ReviewMaterial) RerankCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) (*recommend.CandidateSet, error) {
	items, err := p.catalog.ReviewContent(ctx, user.ID, p.NumberCandidates())
	if err != nil {
		return nil, fmt.Errorf("review content: %w", err)
	}
	if len(items) == 0 {
		return set, nil
	}

	lo, hi := p.scoreRange(set)
	reason := p.Reason("related to your recent activity")
	for i := range items {
		c, err := p.Candidate(ctx, user, items[i])
		if err != nil {
			return nil, err
		}
		c.Score = p.rnd.between(lo, hi)
		c.Reason = reason
		c.Status = recommend.CandidateReady
		if err := p.SaveCandidate(ctx, c); err != nil {
			return nil, fmt.Errorf("save review candidate %d: %w", c.ContentID, err)
		}
		set.Put(c)
	}
	set.SortByScore()
	return set, nil
}

// scoreRange is the combined score range review items are drawn from. The
// upper bound is at least 1.
func (p *ReviewMaterial) scoreRange(set *recommend.CandidateSet) (lo, hi float64) {
	if set.Len() == 0 {
		return 0, 1
	}
	lo, hi = set.MinMaxScore()
	if hi < 1 {
		hi = 1
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
