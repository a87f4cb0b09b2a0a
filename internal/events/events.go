// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package events

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/recommender/internal/recommend"
)

// Topics. With NATS they double as subjects under the stream.
const (
	TopicPublished    = "recommendation.published"
	TopicRunCompleted = "recommendation.run_completed"
)

// Topics returns every topic the publisher writes to.
func Topics() []string {
	return []string{TopicPublished, TopicRunCompleted}
}

// Published is the payload of a recommendation.published event.
type Published struct {
	EventID     string    `json:"event_id"`
	FlagID      string    `json:"flag_id"`
	FlagType    string    `json:"flag_type"`
	UserID      int64     `json:"user_id"`
	ContentID   int64     `json:"content_id"`
	ContentType string    `json:"content_type,omitempty"`
	PluginID    string    `json:"plugin_id"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason"`
	Created     time.Time `json:"created"`
}

// RunCompleted is the payload of a recommendation.run_completed event.
type RunCompleted struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id,omitempty"`
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status"`
	Retrieved  int       `json:"retrieved"`
	DurationMS int64     `json:"duration_ms"`
	Completed  time.Time `json:"completed"`
}

func newPublished(f *recommend.Flag) *Published {
	return &Published{
		EventID:     uuid.NewString(),
		FlagID:      f.ID,
		FlagType:    f.FlagType,
		UserID:      f.UserID,
		ContentID:   f.ContentID,
		ContentType: f.ContentType,
		PluginID:    f.PluginID,
		Score:       f.Score,
		Reason:      f.Reason,
		Created:     f.Created,
	}
}

func newRunCompleted(st *recommend.UserStatus) *RunCompleted {
	ev := &RunCompleted{
		EventID:    uuid.NewString(),
		RunID:      st.RunID,
		UserID:     st.UserID,
		Status:     string(st.Status),
		Retrieved:  st.Retrieved,
		DurationMS: st.Duration.Milliseconds(),
		Completed:  st.Changed,
	}
	if st.Updated != nil {
		ev.Completed = *st.Updated
	}
	return ev
}

// newMessage serializes payload into a Watermill message keyed by eventID.
func newMessage(eventID string, userID int64, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(eventID, data)
	msg.Metadata.Set("user_id", strconv.FormatInt(userID, 10))
	msg.Metadata.Set("content_type", "application/json")
	return msg, nil
}

// DecodePublished parses a recommendation.published message.
func DecodePublished(msg *message.Message) (*Published, error) {
	var ev Published
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode published event: %w", err)
	}
	return &ev, nil
}

// DecodeRunCompleted parses a recommendation.run_completed message.
func DecodeRunCompleted(msg *message.Message) (*RunCompleted, error) {
	var ev RunCompleted
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode run completed event: %w", err)
	}
	return &ev, nil
}
