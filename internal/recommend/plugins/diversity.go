// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package plugins

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/recommender/internal/recommend"
)

// defaultLambda favours relevance over diversity.
const defaultLambda = 0.7

// Diversity implements Maximal Marginal Relevance reranking over topics.
// It iteratively picks the candidate that is both relevant and unlike the
// ones already picked:
//
//	MMR = argmax[lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// Two candidates are similar when they share a topic or a parent. Scores
// are normalized by the best score so lambda means the same regardless of
// how many plugins contributed.
type Diversity struct {
	recommend.Base
	lambda float64
}

// NewDiversity is the diversity factory. The "lambda" option sets the
// relevance/diversity balance in [0, 1].
//
//nolint:gocritic // env passed by value mirrors the factory signature
func NewDiversity(env recommend.Env) (*Diversity, error) {
	p := &Diversity{Base: recommend.NewBase(env), lambda: defaultLambda}
	if v := p.Option("lambda", ""); v != "" {
		lambda, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("diversity: invalid lambda %q: %w", v, err)
		}
		p.lambda = lambda
	}
	if p.lambda < 0 {
		p.lambda = 0
	}
	if p.lambda > 1 {
		p.lambda = 1
	}
	return p, nil
}

// RerankCandidates reorders the set. Nothing is added or dropped.
func (p *Diversity) RerankCandidates(_ context.Context, set *recommend.CandidateSet, _ *recommend.User) (*recommend.CandidateSet, error) {
	items := set.Items()
	if len(items) < 2 || p.lambda >= 1 {
		return set, nil
	}

	_, best := set.MinMaxScore()
	relevance := make([]float64, len(items))
	for i, c := range items {
		if best > 0 {
			relevance[i] = c.Score / best
		}
	}

	selected := make([]int64, 0, len(items))
	picked := make([]bool, len(items))
	var pickedIdx []int

	for len(selected) < len(items) {
		bestIdx := -1
		bestMMR := 0.0
		for i, c := range items {
			if picked[i] {
				continue
			}
			maxSim := 0.0
			for _, j := range pickedIdx {
				if sim := similarity(&c.Content, &items[j].Content); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := p.lambda*relevance[i] - (1-p.lambda)*maxSim
			if bestIdx < 0 || mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}
		picked[bestIdx] = true
		pickedIdx = append(pickedIdx, bestIdx)
		selected = append(selected, items[bestIdx].ContentID)
	}

	set.Reorder(selected)
	return set, nil
}

func similarity(a, b *recommend.Content) float64 {
	switch {
	case a.TopicID != 0 && a.TopicID == b.TopicID:
		return 1
	case a.ParentID != 0 && a.ParentID == b.ParentID:
		return 1
	default:
		return 0
	}
}
