// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// EventLogger writes the lines the event publisher emits for each
// recommendation event.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger returns an EventLogger on the global logger.
func NewEventLogger() *EventLogger {
	return &EventLogger{logger: WithComponent("events")}
}

// NewEventLoggerWithLogger returns an EventLogger on logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (e *EventLogger) with(ctx context.Context) *zerolog.Logger {
	l := e.logger
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With().Str("run_id", id).Logger()
	}
	return &l
}

// LogEventPublished records a successfully published event.
func (e *EventLogger) LogEventPublished(ctx context.Context, eventID, topic string) {
	e.with(ctx).Debug().
		Str("event_id", eventID).
		Str("topic", topic).
		Msg("Event published")
}

// LogPublishFailed records an event that could not be published.
func (e *EventLogger) LogPublishFailed(ctx context.Context, eventID, topic string, err error) {
	e.with(ctx).Warn().
		Err(err).
		Str("event_id", eventID).
		Str("topic", topic).
		Msg("Event publish failed")
}

// LogSubscriptionStarted records a subscriber attaching to topic.
func (e *EventLogger) LogSubscriptionStarted(topic string) {
	e.logger.Info().Str("topic", topic).Msg("Subscription started")
}

// LogSubscriptionStopped records a subscriber detaching from topic.
func (e *EventLogger) LogSubscriptionStopped(topic string) {
	e.logger.Info().Str("topic", topic).Msg("Subscription stopped")
}
