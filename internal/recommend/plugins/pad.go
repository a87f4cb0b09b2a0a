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

// PadResults adds general content when generation produced too few
// candidates. Padded items get a low score so they rank last.
type PadResults struct {
	recommend.Base
	catalog recommend.Catalog
	rnd     *randSource
}

// NewPadResults is the pad_results factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewPadResults(env recommend.Env, catalog recommend.Catalog, rnd *randSource) (*PadResults, error) {
	if catalog == nil {
		return nil, errors.New("pad_results: catalog is required")
	}
	return &PadResults{Base: recommend.NewBase(env), catalog: catalog, rnd: rnd}, nil
}

func (p *PadResults) AlterCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) (*recommend.CandidateSet, error) {
	want := p.NumberCandidates()
	if set.Len() > want {
		return set, nil
	}
	items, err := p.catalog.PadContent(ctx, user.ID, user.Languages(), want)
	if err != nil {
		return nil, fmt.Errorf("pad content: %w", err)
	}

	reason := p.Reason("something you might want to explore")
	for i := range items {
		c, err := p.Candidate(ctx, user, items[i])
		if err != nil {
			return nil, err
		}
		set.Put(c)
		if err := p.Stash(ctx, user.ID, c.ContentID, p.rnd.between(0.1, 0.25), reason); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (p *PadResults) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) error {
	return p.Confirm(ctx, set, user)
}
