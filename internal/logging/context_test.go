// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned %q", got)
	}
	ctx = ContextWithNewCorrelationID(ctx)
	if got := CorrelationIDFromContext(ctx); len(got) != 8 {
		t.Errorf("correlation id = %q, want 8 characters", got)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	id := GenerateRequestID()
	ctx := ContextWithRequestID(context.Background(), id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, id)
	}
}

func TestRunAndUserID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := UserIDFromContext(ctx); ok {
		t.Error("empty context reported a user id")
	}
	ctx = ContextWithUserID(ContextWithRunID(ctx, "run-1"), 42)
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext() = %q", got)
	}
	if got, ok := UserIDFromContext(ctx); !ok || got != 42 {
		t.Errorf("UserIDFromContext() = %d, %v", got, ok)
	}
}

func TestCtx_AddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req")
	ctx = ContextWithRunID(ctx, "run-9")
	ctx = ContextWithUserID(ctx, 3)

	Ctx(ctx).Info().Msg("stage complete")

	out := buf.String()
	for _, want := range []string{
		`"correlation_id":"abc12345"`,
		`"request_id":"req"`,
		`"run_id":"run-9"`,
		`"user_id":3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestCtx_NoIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	Ctx(ctx).Info().Msg("plain")
	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("unexpected run_id: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { SetLogger(orig) })

	l := WithComponent("queue-processor")
	l.Info().Msg("tick")
	if !strings.Contains(buf.String(), `"component":"queue-processor"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestEventLogger(t *testing.T) {
	setGlobalLevel(t, zerolog.DebugLevel)
	var buf bytes.Buffer
	e := NewEventLoggerWithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	ctx := ContextWithRunID(context.Background(), "run-2")

	e.LogEventPublished(ctx, "evt-1", "recommendation.published")
	e.LogPublishFailed(ctx, "evt-2", "recommendation.published", context.DeadlineExceeded)

	out := buf.String()
	for _, want := range []string{`"event_id":"evt-1"`, `"run_id":"run-2"`, "Event publish failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
