// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package recommend implements the per-user recommendation pipeline.
//
// # Pipeline
//
// A run takes one user through five stages, each served by the plugins
// registered for it in ascending weight order:
//
//  1. generate_candidates: generators nominate content; candidates are
//     deduplicated by content id.
//  2. alter_candidates: alterers add or drop candidates in sequence.
//  3. score_candidates: scorers attach per-plugin scores.
//  4. combination: the configured combiner reduces scores to one score
//     and a human readable reason.
//  5. rerank_candidates: rerankers reorder the combined set.
//
// The surviving candidates are published as flags in a FlagSink and,
// unless retention is "never", appended to the history.
//
// # User State
//
// Each user carries a persisted UserStatus that moves through
//
//	queued -> generate_candidate -> alter_candidate -> score_candidate
//	       -> combine_score -> rerank_candidate -> ready -> stale
//
// Triggers such as login, registration and admin rebuilds queue a user
// with a priority. The queue processor claims users with a lease so a
// crashed worker never blocks a user for longer than the lease timeout.
// A trigger that arrives while a run holds the lease is refused with
// ErrRunInProgress and remembered; releasing the lease queues the user again.
// MarkStale moves ready users older than the freshness horizon to stale.
//
// # Plugins
//
// Plugins are statically registered (see the plugins and combiners
// packages) and resolved into a Registry once at startup. A plugin failure
// is logged and counted; the remaining plugins still run.
//
// # Usage
//
//	registry, err := recommend.NewRegistry(plugins.Registrations(deps), combiners.Registrations(), cfg, regDeps, logger)
//	svc, err := recommend.NewService(recommend.Deps{Store: db, Users: db, Flags: flagStore, Events: publisher, Registry: registry, Config: cfg, Logger: logger})
//	result, err := svc.BuildUserRecommendations(ctx, userID, 0, true)
//
// # Thread Safety
//
// Service is safe for concurrent use. Concurrent runs for one user are
// serialised through the status lease in the Store.
package recommend
