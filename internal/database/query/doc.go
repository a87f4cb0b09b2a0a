// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

// Package query provides SQL query building utilities for the database package.
//
// The WhereBuilder constructs parameterized WHERE clauses with a fluent
// interface:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("published = ?", true)
//	wb.AddStrings("language", []string{"en", "und"})
//	wb.AddInt64s("topic_id", topics)
//	whereClause, args := wb.Build()
//	// Result: "published = ? AND language IN (?, ?) AND topic_id IN (?, ?)"
//
// Empty lists are skipped, so a nil language filter matches every language.
// Use AddNotInt64s for exclusion lists.
package query
