// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/metrics"
)

// publish replaces the user's engine flags with the ranked candidates and
// returns the number of flags written. Flags placed by anything other than
// the engine are never touched or duplicated.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) publish(ctx context.Context, set *CandidateSet, user *User, logger zerolog.Logger) (int, error) {
	flagType := s.cfg.FlagType
	exists, err := s.flags.FlagTypeExists(ctx, flagType)
	if err != nil {
		return 0, fmt.Errorf("check flag type %s: %w", flagType, err)
	}
	if !exists {
		logger.Warn().Str("flag_type", flagType).Msg("recommendation flag type does not exist, nothing published")
		return 0, nil
	}

	if _, err := s.removeEngineFlags(ctx, user.ID); err != nil {
		return 0, err
	}

	count := 0
	for _, c := range set.Items() {
		if c.Score == 0 {
			continue
		}
		if !s.flags.Applies(flagType, c.Content.Type) {
			continue
		}
		flagged, err := s.flags.IsFlagged(ctx, flagType, user.ID, c.ContentID)
		if err != nil {
			logger.Error().Err(err).Int64("content_id", c.ContentID).Msg("failed to check existing flag")
			continue
		}
		if flagged {
			continue
		}

		f := &Flag{
			ID:          uuid.NewString(),
			FlagType:    flagType,
			UserID:      user.ID,
			ContentID:   c.ContentID,
			ContentType: c.Content.Type,
			PluginID:    EnginePluginID,
			Reason:      c.Reason,
			Score:       c.Score,
			Created:     s.now(),
		}
		if err := s.flags.Flag(ctx, f); err != nil {
			logger.Error().Err(err).Int64("content_id", c.ContentID).Msg("failed to flag recommendation")
			continue
		}
		s.appendHistory(ctx, c, logger)
		if err := s.events.RecommendationPublished(ctx, f); err != nil {
			logger.Warn().Err(err).Int64("content_id", c.ContentID).Msg("failed to emit published event")
		}
		count++
	}

	metrics.RecordPublished(count)
	return count, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func (s *Service) appendHistory(ctx context.Context, c *Candidate, logger zerolog.Logger) {
	if s.cfg.HistoryRetention.Never {
		return
	}
	entry := &HistoryEntry{
		UserID:    c.UserID,
		ContentID: c.ContentID,
		PluginID:  EnginePluginID,
		Score:     c.Score,
		Reason:    c.Reason,
		Created:   s.now(),
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		logger.Error().Err(err).Int64("content_id", c.ContentID).Msg("failed to store recommendation history")
	}
}

// removeEngineFlags deletes the engine flags of one user.
func (s *Service) removeEngineFlags(ctx context.Context, userID int64) (int, error) {
	current, err := s.flags.FlagsByPlugin(ctx, s.cfg.FlagType, userID, EnginePluginID)
	if err != nil {
		return 0, fmt.Errorf("list current flags: %w", err)
	}
	removed := 0
	for i := range current {
		if err := s.flags.Unflag(ctx, &current[i]); err != nil {
			return removed, fmt.Errorf("unflag %d: %w", current[i].ContentID, err)
		}
		removed++
	}
	return removed, nil
}
