// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package combiners implements the score combination plugins that reduce
// per-plugin scores to a single candidate score and reason.
package combiners

import (
	"errors"

	"github.com/tomtom215/recommender/internal/recommend"
)

const (
	SumScoreID      = "sum_score"
	WeightedScoreID = "weighted_score"
)

// Registrations returns the static combiner table. The first entry is the
// fallback when the configured combiner is unavailable.
func Registrations() []recommend.CombinerRegistration {
	return []recommend.CombinerRegistration{
		{
			ID:          SumScoreID,
			Label:       "Sum Score",
			Description: "Adds the scores of every plugin.",
			Factory:     NewSum,
		},
		{
			ID:          WeightedScoreID,
			Label:       "Weighted Score",
			Description: "Adds the scores of every plugin multiplied by a per-plugin weight.",
			Factory:     NewWeighted,
		},
	}
}

// base renders reasons from the adjusted scores.
type base struct {
	id      string
	reasons *recommend.ReasonWriter
	weight  func(pluginID string) float64
}

func (b *base) ID() string { return b.id }

func (b *base) ranked(c *recommend.Candidate) []recommend.RankedScore {
	out := make([]recommend.RankedScore, 0, len(c.Scores))
	for i := range c.Scores {
		ps := &c.Scores[i]
		out = append(out, recommend.RankedScore{
			PluginID: ps.PluginID,
			Score:    ps.Score * b.weight(ps.PluginID),
			Reason:   ps.Reason,
		})
	}
	return out
}

// Score returns the sum of the adjusted plugin scores.
func (b *base) Score(c *recommend.Candidate) float64 {
	total := 0.0
	for _, rs := range b.ranked(c) {
		total += rs.Score
	}
	return total
}

// Reason renders the top two reasons in lang.
func (b *base) Reason(c *recommend.Candidate, lang string) (string, error) {
	return b.reasons.Render(b.ranked(c), lang)
}

// Sum adds plugin scores unchanged.
type Sum struct{ base }

// NewSum is the sum_score factory.
func NewSum(env recommend.CombinerEnv) (recommend.Combiner, error) {
	if env.Reasons == nil {
		return nil, errors.New("sum_score: reason writer is required")
	}
	return &Sum{base{
		id:      env.CombinerID,
		reasons: env.Reasons,
		weight:  func(string) float64 { return 1 },
	}}, nil
}

// Weighted multiplies each plugin's score by its configured weight,
// defaulting to 1.
type Weighted struct{ base }

// NewWeighted is the weighted_score factory.
func NewWeighted(env recommend.CombinerEnv) (recommend.Combiner, error) {
	if env.Reasons == nil {
		return nil, errors.New("weighted_score: reason writer is required")
	}
	weights := make(map[string]float64, len(env.Settings))
	for id, s := range env.Settings {
		if s.Weight != nil {
			weights[id] = *s.Weight
		}
	}
	return &Weighted{base{
		id:      env.CombinerID,
		reasons: env.Reasons,
		weight: func(pluginID string) float64 {
			if w, ok := weights[pluginID]; ok {
				return w
			}
			return 1
		},
	}}, nil
}

var (
	_ recommend.Combiner = (*Sum)(nil)
	_ recommend.Combiner = (*Weighted)(nil)
)
