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

// Trending nominates the most viewed content. The score is the inverse of
// the popularity rank.
type Trending struct {
	recommend.Base
	catalog recommend.Catalog
}

// NewTrending is the trending_content factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewTrending(env recommend.Env, catalog recommend.Catalog) (*Trending, error) {
	if catalog == nil {
		return nil, errors.New("trending_content: catalog is required")
	}
	return &Trending{Base: recommend.NewBase(env), catalog: catalog}, nil
}

func (p *Trending) GenerateCandidates(ctx context.Context, user *recommend.User) ([]recommend.Content, error) {
	items, err := p.catalog.PopularContent(ctx, user.Languages(), p.NumberCandidates())
	if err != nil {
		return nil, fmt.Errorf("popular content: %w", err)
	}
	reason := p.Reason("popular")
	for i := range items {
		position := i + 1
		if err := p.Stash(ctx, user.ID, items[i].ID, 1/float64(position), reason); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (p *Trending) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) error {
	return p.Confirm(ctx, set, user)
}
