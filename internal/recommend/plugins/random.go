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

// randomCount is how many random items are nominated regardless of the
// configured candidate count.
const randomCount = 10

// Random nominates random published content and gives every candidate a
// random score.
type Random struct {
	recommend.Base
	catalog recommend.Catalog
	rnd     *randSource
}

// NewRandom is the random_content factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewRandom(env recommend.Env, catalog recommend.Catalog, rnd *randSource) (*Random, error) {
	if catalog == nil {
		return nil, errors.New("random_content: catalog is required")
	}
	return &Random{Base: recommend.NewBase(env), catalog: catalog, rnd: rnd}, nil
}

func (p *Random) GenerateCandidates(ctx context.Context, _ *recommend.User) ([]recommend.Content, error) {
	items, err := p.catalog.RandomContent(ctx, randomCount)
	if err != nil {
		return nil, fmt.Errorf("random content: %w", err)
	}
	return items, nil
}

func (p *Random) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, _ *recommend.User) error {
	reason := p.Reason("something different")
	var errs []error
	for _, c := range set.Items() {
		if err := p.Attach(ctx, c, p.rnd.between(0, 1), reason, recommend.ScoreReady); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
