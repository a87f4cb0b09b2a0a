// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/recommend"
)

// QueueProcessor drains the rebuild queue.
type QueueProcessor interface {
	ProcessQueue(ctx context.Context, budget time.Duration) (recommend.QueueStats, error)
}

// QueueServiceConfig holds the queue processor schedule.
type QueueServiceConfig struct {
	// Enabled is false when builds run immediately instead of from the
	// queue; the service then idles.
	Enabled bool

	Interval time.Duration

	// Budget bounds one pass. It should stay below Interval.
	Budget time.Duration
}

// QueueService runs ProcessQueue on a ticker.
type QueueService struct {
	queue  QueueProcessor
	config QueueServiceConfig
	logger zerolog.Logger
	name   string
}

// NewQueueService creates a queue processor service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewQueueService(queue QueueProcessor, cfg QueueServiceConfig, logger zerolog.Logger) *QueueService {
	return &QueueService{
		queue:  queue,
		config: cfg,
		logger: logger.With().Str("service", "queue-processor").Logger(),
		name:   "queue-processor",
	}
}

// Serve implements suture.Service.
func (s *QueueService) Serve(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info().Msg("cron mode disabled, queue processor idle")
		<-ctx.Done()
		return ctx.Err()
	}
	return runEvery(ctx, s.logger, s.config.Interval, false, s.process)
}

func (s *QueueService) process(ctx context.Context) {
	stats, err := s.queue.ProcessQueue(ctx, s.config.Budget)
	if err != nil {
		s.logger.Warn().Err(err).Msg("queue pass failed")
		return
	}
	if stats.Selected == 0 {
		return
	}
	s.logger.Info().
		Int("selected", stats.Selected).
		Int("processed", stats.Processed).
		Int("deferred", stats.Deferred).
		Int("failed", stats.Failed).
		Int("removed", stats.Removed).
		Msg("queue pass complete")
}

// String returns the service name for logging.
func (s *QueueService) String() string {
	return s.name
}
