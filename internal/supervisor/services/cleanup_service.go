// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// HistoryCleaner deletes history beyond the retention horizon.
type HistoryCleaner interface {
	CleanupHistory(ctx context.Context, budget time.Duration) (int64, error)
}

// Checkpointer remembers when a named job last completed.
type Checkpointer interface {
	LastRun(name string) (time.Time, bool, error)
	RecordRun(name string, t time.Time) error
}

const historyCleanupJob = "history_cleanup"

// HistoryCleanupService runs CleanupHistory on a ticker. A pass is skipped
// when the checkpoint shows one completed less than an interval ago.
type HistoryCleanupService struct {
	cleaner     HistoryCleaner
	checkpoints Checkpointer
	interval    time.Duration
	budget      time.Duration
	now         func() time.Time
	logger      zerolog.Logger
	name        string
}

// NewHistoryCleanupService creates a history retention service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHistoryCleanupService(cleaner HistoryCleaner, checkpoints Checkpointer, interval, budget time.Duration, logger zerolog.Logger) *HistoryCleanupService {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &HistoryCleanupService{
		cleaner:     cleaner,
		checkpoints: checkpoints,
		interval:    interval,
		budget:      budget,
		now:         time.Now,
		logger:      logger.With().Str("service", "history-cleanup").Logger(),
		name:        "history-cleanup",
	}
}

// Serve implements suture.Service.
func (s *HistoryCleanupService) Serve(ctx context.Context) error {
	return runEvery(ctx, s.logger, s.interval, true, s.cleanup)
}

func (s *HistoryCleanupService) cleanup(ctx context.Context) {
	now := s.now()
	last, ok, err := s.checkpoints.LastRun(historyCleanupJob)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading cleanup checkpoint failed")
	}
	// A little slack so a ticker firing early does not skip a whole period.
	if ok && now.Sub(last) < s.interval-s.interval/10 {
		s.logger.Debug().Time("last_run", last).Msg("history cleanup ran recently, skipping")
		return
	}

	n, err := s.cleaner.CleanupHistory(ctx, s.budget)
	if err != nil {
		s.logger.Warn().Err(err).Int64("deleted", n).Msg("history cleanup failed")
		return
	}
	if err := s.checkpoints.RecordRun(historyCleanupJob, now); err != nil {
		s.logger.Warn().Err(err).Msg("writing cleanup checkpoint failed")
	}
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("history cleanup complete")
	}
}

// String returns the service name for logging.
func (s *HistoryCleanupService) String() string {
	return s.name
}
