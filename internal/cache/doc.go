// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package cache provides a bounded, thread-safe LRU cache with per-entry
// expiry. Plugins use it for per-user bookkeeping that must not grow with
// the user base, such as the last remote result consumed for each user.
package cache
