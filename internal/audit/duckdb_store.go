// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/recommender/internal/database/query"
)

// DuckDBStore persists events in the audit_events table.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open DuckDB connection.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

var auditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		target_type TEXT,
		target_id TEXT,
		source_ip TEXT NOT NULL,
		source_user_agent TEXT,
		description TEXT NOT NULL,
		metadata TEXT,
		correlation_id TEXT,
		request_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
}

// CreateTable creates the audit table and its indexes when missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range auditSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create audit schema: %w", err)
		}
	}
	return nil
}

// Save inserts the event.
func (s *DuckDBStore) Save(ctx context.Context, e *Event) error {
	var targetType, targetID, metadata *string
	if e.Target != nil {
		targetType, targetID = &e.Target.Type, &e.Target.ID
	}
	if len(e.Metadata) > 0 {
		m := string(e.Metadata)
		metadata = &m
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_events
		(id, timestamp, type, outcome, target_type, target_id, source_ip, source_user_agent,
		 description, metadata, correlation_id, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), string(e.Type), string(e.Outcome), targetType, targetID,
		e.Source.IPAddress, e.Source.UserAgent, e.Description, metadata, e.CorrelationID, e.RequestID)
	if err != nil {
		return fmt.Errorf("failed to save audit event %s: %w", e.ID, err)
	}
	return nil
}

// Query returns matching events, most recent first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	wb := query.NewWhereBuilder()
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		wb.AddStrings("type", types)
	}
	if filter.Outcome != "" {
		wb.AddClause("outcome = ?", string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		wb.AddClause("timestamp >= ?", filter.Since.UTC())
	}
	where, args := wb.BuildWithPrefix()

	q := `SELECT id, timestamp, type, outcome, target_type, target_id, source_ip,
		COALESCE(source_user_agent, ''), description, metadata,
		COALESCE(correlation_id, ''), COALESCE(request_id, '')
		FROM audit_events ` + where + ` ORDER BY timestamp DESC, id`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                    Event
			typ, outcome         string
			targetType, targetID sql.NullString
			metadata             sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &typ, &outcome, &targetType, &targetID,
			&e.Source.IPAddress, &e.Source.UserAgent, &e.Description, &metadata,
			&e.CorrelationID, &e.RequestID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Type = EventType(typ)
		e.Outcome = Outcome(outcome)
		if targetType.Valid || targetID.Valid {
			e.Target = &Target{Type: targetType.String, ID: targetID.String}
		}
		if metadata.Valid && strings.TrimSpace(metadata.String) != "" {
			e.Metadata = []byte(metadata.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes events older than the cutoff.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return res.RowsAffected()
}

var _ Store = (*DuckDBStore)(nil)
