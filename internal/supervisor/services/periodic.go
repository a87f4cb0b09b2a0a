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

const defaultInterval = time.Hour

// runEvery calls tick once immediately when runOnStart is set and then every
// interval until ctx is done.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func runEvery(ctx context.Context, logger zerolog.Logger, interval time.Duration, runOnStart bool, tick func(ctx context.Context)) error {
	if interval <= 0 {
		interval = defaultInterval
	}
	logger.Info().Dur("interval", interval).Msg("service starting")

	if runOnStart {
		tick(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("service shutting down")
			return ctx.Err()
		case <-ticker.C:
			tick(ctx)
		}
	}
}
