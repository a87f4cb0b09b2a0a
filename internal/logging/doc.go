// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package logging provides the process-wide zerolog logger for the
// recommender.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Int("users", n).Msg("Queue processed")
//
// Components derive their own logger once and keep it:
//
//	logger := logging.WithComponent("queue-processor")
//
// # Context
//
// Request handlers and pipeline runs carry identifiers in the context so
// that every line written for a run can be correlated:
//
//	ctx = logging.ContextWithRunID(ctx, runID)
//	logging.Ctx(ctx).Debug().Msg("stage complete")
//	// {"level":"debug","run_id":"...","message":"stage complete"}
//
// # slog
//
// Libraries that want a *slog.Logger (sutureslog, Watermill) are handed
// NewSlogLogger, which writes through the same zerolog backend.
//
// # Configuration
//
// The logging section of the configuration file, or the environment:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file and line (default: false)
package logging
