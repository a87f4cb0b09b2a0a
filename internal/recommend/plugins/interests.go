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

// interestTypes are the content types nominated from a user's topics.
var interestTypes = []string{"course", "learn_article", "learn_link", "learn_package"}

// UserInterests nominates uncompleted top level content in the topics a
// user follows and scores candidates in those topics.
type UserInterests struct {
	recommend.Base
	catalog recommend.Catalog
	rnd     *randSource
}

// NewUserInterests is the user_interests factory.
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewUserInterests(env recommend.Env, catalog recommend.Catalog, rnd *randSource) (*UserInterests, error) {
	if catalog == nil {
		return nil, errors.New("user_interests: catalog is required")
	}
	return &UserInterests{Base: recommend.NewBase(env), catalog: catalog, rnd: rnd}, nil
}

func (p *UserInterests) GenerateCandidates(ctx context.Context, user *recommend.User) ([]recommend.Content, error) {
	topics, err := p.catalog.UserInterests(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("user interests: %w", err)
	}
	if len(topics) == 0 {
		return nil, nil
	}
	completed, err := p.catalog.Completions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("completions: %w", err)
	}
	items, err := p.catalog.TopicContent(ctx, topics, interestTypes, completed, p.NumberCandidates())
	if err != nil {
		return nil, fmt.Errorf("topic content: %w", err)
	}
	return items, nil
}

// ScoreCandidates scores any candidate tagged with a followed topic
// between 0.75 and 1.
func (p *UserInterests) ScoreCandidates(ctx context.Context, set *recommend.CandidateSet, user *recommend.User) error {
	topics, err := p.catalog.UserInterests(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("user interests: %w", err)
	}
	followed := make(map[int64]bool, len(topics))
	for _, t := range topics {
		followed[t] = true
	}

	reason := p.Reason("something you might be interested in")
	var errs []error
	for _, c := range set.Items() {
		if c.Content.TopicID == 0 || !followed[c.Content.TopicID] {
			continue
		}
		if err := p.Attach(ctx, c, p.rnd.between(0.75, 1), reason, recommend.ScoreReady); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
