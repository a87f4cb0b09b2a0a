// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package database is the DuckDB persistence layer of the recommender.
//
// A single DB value implements three contracts of the recommend package:
//
//   - recommend.Store: per-user status records, candidates, per-plugin
//     scores and the append-only recommendation history
//   - recommend.Catalog: a mirror of the content platform (content, view
//     counts, completions, interests, similarity and review material)
//   - recommend.UserDirectory: the users table
//
// # Files
//
//   - database.go: connection lifecycle and initialization
//   - database_schema.go: table and index creation
//   - migrations.go: versioned schema migrations
//   - database_connection.go: pool settings and transaction conflict retries
//   - status.go, candidates.go, scores.go, history.go: pipeline stores
//   - catalog.go: catalog queries and the user directory
//   - ingest.go: catalog imports
//
// # Concurrency
//
// DuckDB uses optimistic concurrency control, so two connections updating
// the same row conflict. Writes to a user's status row are serialized with
// an in-process per-user mutex and retried with exponential backoff when a
// conflict still occurs. ClaimRun treats a conflict as a lost claim.
//
// # Timestamps
//
// All timestamps are stored in UTC in naive TIMESTAMP columns.
//
// # Testing
//
// Tests that open DuckDB are behind the integration build tag:
//
//	go test -tags integration ./internal/database/...
package database
