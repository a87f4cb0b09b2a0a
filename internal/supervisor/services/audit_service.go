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

// AuditPruner deletes audit events past their retention.
type AuditPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// AuditRetentionService prunes the audit trail on a ticker, once at start.
type AuditRetentionService struct {
	pruner   AuditPruner
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewAuditRetentionService creates an audit retention service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAuditRetentionService(pruner AuditPruner, interval time.Duration, logger zerolog.Logger) *AuditRetentionService {
	return &AuditRetentionService{
		pruner:   pruner,
		interval: interval,
		logger:   logger.With().Str("service", "audit-retention").Logger(),
		name:     "audit-retention",
	}
}

// Serve implements suture.Service.
func (s *AuditRetentionService) Serve(ctx context.Context) error {
	return runEvery(ctx, s.logger, s.interval, true, func(ctx context.Context) {
		n, err := s.pruner.Prune(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("pruning audit events failed")
			return
		}
		if n > 0 {
			s.logger.Info().Int64("deleted", n).Msg("audit events pruned")
		}
	})
}

// String returns the service name for logging.
func (s *AuditRetentionService) String() string {
	return s.name
}
