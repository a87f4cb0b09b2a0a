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

// StaleMarker moves outdated READY statuses to STALE.
type StaleMarker interface {
	MarkStale(ctx context.Context) (int64, error)
}

// StaleService runs MarkStale on a ticker, once at start.
type StaleService struct {
	marker   StaleMarker
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewStaleService creates a staleness marker service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStaleService(marker StaleMarker, interval time.Duration, logger zerolog.Logger) *StaleService {
	return &StaleService{
		marker:   marker,
		interval: interval,
		logger:   logger.With().Str("service", "stale-marker").Logger(),
		name:     "stale-marker",
	}
}

// Serve implements suture.Service.
func (s *StaleService) Serve(ctx context.Context) error {
	return runEvery(ctx, s.logger, s.interval, true, func(ctx context.Context) {
		n, err := s.marker.MarkStale(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("marking stale statuses failed")
			return
		}
		if n > 0 {
			s.logger.Info().Int64("count", n).Msg("statuses marked stale")
		}
	})
}

// String returns the service name for logging.
func (s *StaleService) String() string {
	return s.name
}
