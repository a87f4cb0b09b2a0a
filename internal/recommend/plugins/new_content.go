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

// minRecencyScore drops candidates too old for the score to matter.
const minRecencyScore = 0.01

// NewContent nominates the newest content and scores every candidate by
// how recently it changed.
type NewContent struct {
	recommend.Base
	catalog recommend.Catalog
}

// NewNewContent is the new_content factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewNewContent(env recommend.Env, catalog recommend.Catalog) (*NewContent, error) {
	if catalog == nil {
		return nil, errors.New("new_content: catalog is required")
	}
	return &NewContent{Base: recommend.NewBase(env), catalog: catalog}, nil
}

func (p *NewContent) GenerateCandidates(ctx context.Context, user *recommend.User) ([]recommend.Content, error) {
	items, err := p.catalog.RecentContent(ctx, user.Languages(), p.NumberCandidates())
	if err != nil {
		return nil, fmt.Errorf("recent content: %w", err)
	}
	return items, nil
}

// ScoreCandidates scores every candidate, not only the ones this plugin
// nominated.
func (p *NewContent) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, _ *recommend.User) error {
	reason := p.Reason("new")
	var errs []error
	for _, c := range set.Items() {
		score := p.recency(c.Content)
		if score < minRecencyScore {
			continue
		}
		if err := p.Attach(ctx, c, score, reason, recommend.ScoreReady); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recency is inversely proportional to the days since the last change.
func (p *NewContent) recency(content recommend.Content) float64 {
	days := p.Now().Sub(content.Changed).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 / (days + 1)
}
