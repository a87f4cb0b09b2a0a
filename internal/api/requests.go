// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package api

import "time"

// Request structs validated with go-playground/validator tags before any
// pipeline call is made.

// BuildRequest is the body of POST /users/{userID}/recommendations.
type BuildRequest struct {
	// Priority orders the queue; higher runs first.
	Priority int `json:"priority" validate:"min=0,max=1000"`

	// Now runs the pipeline synchronously.
	Now bool `json:"now"`
}

// RebuildRequest is the body of POST /recommendations/rebuild.
type RebuildRequest struct {
	Now bool `json:"now"`
}

// QueueProcessRequest is the body of POST /queue/process. A zero budget
// uses the configured scheduler budget.
type QueueProcessRequest struct {
	BudgetSeconds int `json:"budget_seconds" validate:"min=0,max=600"`
}

// ListRequest carries the limit query parameter of list endpoints.
type ListRequest struct {
	Limit int `validate:"min=1,max=1000"`
}

// UserEventRequest holds the path parameters of the user lifecycle hook.
type UserEventRequest struct {
	UserID int64  `validate:"gt=0"`
	Event  string `validate:"required,oneof=login registered updated"`
}

// PluginRequest holds the plugin id path parameter.
type PluginRequest struct {
	PluginID string `validate:"required,max=128,printascii"`
}

// AuditQueryRequest holds the filters of GET /audit.
type AuditQueryRequest struct {
	Type    string    `validate:"omitempty,oneof=catalog.import recommendations.rebuild_all recommendations.delete_user recommendations.delete_all plugin.scores_removed queue.processed"`
	Outcome string    `validate:"omitempty,oneof=success failure"`
	Since   time.Time `validate:"-"`
}
