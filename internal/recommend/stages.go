// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"

	"github.com/rs/zerolog"
)

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) stagePlugins(stage Stage, logger zerolog.Logger) []Plugin {
	plugins, err := s.registry.Plugins(stage, true)
	if err != nil {
		logger.Error().Err(err).Str("stage", string(stage)).Msg("failed to resolve plugins")
		return nil
	}
	return plugins
}

// generate collects nominations from every generate plugin. The first
// nomination of a content id wins; each nominated candidate has its score
// references cleared before the score stage rebuilds them.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) generate(ctx context.Context, user *User, logger zerolog.Logger) *CandidateSet {
	set := NewCandidateSet()

	if err := s.store.DeleteScores(ctx, user.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear previous plugin scores")
	}

	for _, p := range s.stagePlugins(StageGenerate, logger) {
		gen := p.(Generator)
		var nominated []Content
		err := s.invoke(p.ID(), string(StageGenerate), func() error {
			var err error
			nominated, err = gen.GenerateCandidates(ctx, user)
			return err
		})
		if err != nil {
			logger.Error().Err(err).Str("plugin", p.ID()).Msg("candidate generation failed")
			continue
		}

		added := 0
		for i := range nominated {
			content := nominated[i]
			if set.Has(content.ID) {
				continue
			}
			c, err := s.store.GetOrCreateCandidate(ctx, user.ID, content, s.now())
			if err != nil {
				logger.Error().Err(err).Int64("content_id", content.ID).Msg("failed to load candidate")
				continue
			}
			c.Scores = nil
			c.Status = CandidateProcessing
			c.Changed = s.now()
			if err := s.store.SaveCandidate(ctx, c); err != nil {
				logger.Error().Err(err).Int64("content_id", content.ID).Msg("failed to save candidate")
				continue
			}
			set.Add(c)
			added++
		}
		logger.Debug().Str("plugin", p.ID()).Int("nominated", len(nominated)).Int("added", added).Msg("generated candidates")
	}
	return set
}

// alter chains every alter plugin. Each plugin works on a copy so a failure
// leaves the set it received untouched.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) alter(ctx context.Context, set *CandidateSet, user *User, logger zerolog.Logger) *CandidateSet {
	for _, p := range s.stagePlugins(StageAlter, logger) {
		alt := p.(Alterer)
		var out *CandidateSet
		err := s.invoke(p.ID(), string(StageAlter), func() error {
			var err error
			out, err = alt.AlterCandidates(ctx, set.Clone(), user)
			return err
		})
		if err != nil {
			logger.Error().Err(err).Str("plugin", p.ID()).Msg("candidate alteration failed")
			continue
		}
		if out != nil {
			set = out
		}
	}
	return set
}

// score lets every score plugin attach its own scores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) score(ctx context.Context, set *CandidateSet, user *User, logger zerolog.Logger) {
	for _, p := range s.stagePlugins(StageScore, logger) {
		sc := p.(Scorer)
		err := s.invoke(p.ID(), string(StageScore), func() error {
			return sc.ScoreCandidates(ctx, set, user)
		})
		if err != nil {
			logger.Error().Err(err).Str("plugin", p.ID()).Msg("candidate scoring failed")
		}
	}
}

// combine stores the combined score and reason on every candidate.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) combine(ctx context.Context, set *CandidateSet, user *User, combiner Combiner, logger zerolog.Logger) {
	for _, c := range set.Items() {
		c.Score = combiner.Score(c)
		reason, err := combiner.Reason(c, user.Language)
		if err != nil {
			logger.Warn().Err(err).Int64("content_id", c.ContentID).Msg("failed to render recommendation reason")
		}
		c.Reason = reason
		c.Status = CandidateReady
		c.Changed = s.now()
		if err := s.store.SaveCandidate(ctx, c); err != nil {
			logger.Error().Err(err).Int64("content_id", c.ContentID).Msg("failed to save combined score")
		}
	}
}

// rerank sorts by combined score and chains every rerank plugin.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) rerank(ctx context.Context, set *CandidateSet, user *User, logger zerolog.Logger) *CandidateSet {
	set.SortByScore()
	for _, p := range s.stagePlugins(StageRerank, logger) {
		rr := p.(Reranker)
		var out *CandidateSet
		err := s.invoke(p.ID(), string(StageRerank), func() error {
			var err error
			out, err = rr.RerankCandidates(ctx, set.Clone(), user)
			return err
		})
		if err != nil {
			logger.Error().Err(err).Str("plugin", p.ID()).Msg("candidate reranking failed")
			continue
		}
		if out != nil {
			set = out
		}
	}
	return set
}
