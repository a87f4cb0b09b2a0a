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

// GarbageCollector reclaims space in an embedded store.
type GarbageCollector interface {
	RunGC() error
}

// FlagGCService runs the flag store garbage collection on a ticker.
type FlagGCService struct {
	store    GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewFlagGCService creates a flag store GC service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFlagGCService(store GarbageCollector, interval time.Duration, logger zerolog.Logger) *FlagGCService {
	return &FlagGCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("service", "flag-gc").Logger(),
		name:     "flag-gc",
	}
}

// Serve implements suture.Service.
func (s *FlagGCService) Serve(ctx context.Context) error {
	return runEvery(ctx, s.logger, s.interval, false, func(context.Context) {
		start := time.Now()
		if err := s.store.RunGC(); err != nil {
			s.logger.Warn().Err(err).Msg("flag store GC failed")
			return
		}
		s.logger.Debug().Dur("duration", time.Since(start)).Msg("flag store GC complete")
	})
}

// String returns the service name for logging.
func (s *FlagGCService) String() string {
	return s.name
}
