// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package audit records administrative actions taken through the admin API:
// catalog imports, bulk rebuilds, deletes and resets, plugin score removal
// and manual queue runs.
//
// Events are written asynchronously through a buffered channel so a slow
// store never delays an API response. When the buffer is full the event
// is dropped and a warning is logged.
//
// Two stores are provided:
//
//   - DuckDBStore persists events in the audit_events table of the
//     pipeline database.
//   - MemoryStore keeps a bounded slice, for development and tests.
//
// Usage:
//
//	store := audit.NewDuckDBStore(db.Conn())
//	if err := store.CreateTable(ctx); err != nil { ... }
//	auditLog := audit.NewLogger(store, audit.DefaultConfig())
//	defer auditLog.Close()
//
//	auditLog.Record(r, audit.EventTypeRebuildAll, audit.OutcomeSuccess, nil, "queued all users", map[string]any{"users": n})
package audit
