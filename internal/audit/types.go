// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType identifies the administrative action.
type EventType string

const (
	EventTypeCatalogImport       EventType = "catalog.import"
	EventTypeRebuildAll          EventType = "recommendations.rebuild_all"
	EventTypeDeleteUser          EventType = "recommendations.delete_user"
	EventTypeDeleteAll           EventType = "recommendations.delete_all"
	EventTypePluginScoresRemoved EventType = "plugin.scores_removed"
	EventTypeQueueProcessed      EventType = "queue.processed"
)

// Outcome is the result of the action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited action.
type Event struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          EventType       `json:"type"`
	Outcome       Outcome         `json:"outcome"`
	Target        *Target         `json:"target,omitempty"`
	Source        Source          `json:"source"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
}

// Target is the resource the action applied to.
type Target struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Source is where the action came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Delete removes events older than the cutoff.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter narrows Query. Zero fields match everything.
type QueryFilter struct {
	Types   []EventType
	Outcome Outcome
	Since   time.Time
	Limit   int
}

func (f *QueryFilter) matches(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
