// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package query

import (
	"fmt"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddStrings adds "column IN (?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddStrings(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wb.addIn(column, "IN", args)
}

// AddInt64s adds "column IN (?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddInt64s(column string, values []int64) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	return wb.addIn(column, "IN", int64Args(values))
}

// AddNotInt64s adds "column NOT IN (?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddNotInt64s(column string, values []int64) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	return wb.addIn(column, "NOT IN", int64Args(values))
}

func (wb *WhereBuilder) addIn(column, op string, args []interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s %s (%s)", column, op, Placeholders(len(args))))
	wb.args = append(wb.args, args...)
	return wb
}

// Build returns the clauses joined with AND, or "1=1" when empty.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// Placeholders returns n comma separated "?" placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(values []int64) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
