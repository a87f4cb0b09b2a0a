// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestSlog(buf *bytes.Buffer) *slog.Logger {
	return newSlogLogger(zerolog.New(buf).Level(zerolog.TraceLevel))
}

func TestSlogHandler_Levels(t *testing.T) {
	setGlobalLevel(t, zerolog.TraceLevel)
	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
	}{
		{"debug", func(l *slog.Logger) { l.Debug("m") }, "debug"},
		{"info", func(l *slog.Logger) { l.Info("m") }, "info"},
		{"warn", func(l *slog.Logger) { l.Warn("m") }, "warn"},
		{"error", func(l *slog.Logger) { l.Error("m") }, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newTestSlog(&buf))
			if !strings.Contains(buf.String(), `"level":"`+tt.level+`"`) {
				t.Errorf("unexpected output: %s", buf.String())
			}
		})
	}
}

func TestSlogHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestSlog(&buf).With("service", "queue-processor")

	l.Info("restarting",
		"attempt", 2,
		"backoff", time.Second,
		"ok", false,
	)

	out := buf.String()
	for _, want := range []string{
		`"service":"queue-processor"`,
		`"attempt":2`,
		`"ok":false`,
		`"message":"restarting"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	newTestSlog(&buf).WithGroup("run").Info("done", "users", 3)

	if !strings.Contains(buf.String(), `"run.users":3`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestSlogHandler_AttrsBeforeAndAfterGroup(t *testing.T) {
	var buf bytes.Buffer
	newTestSlog(&buf).
		With("service", "queue").
		WithGroup("batch").
		With("size", 10).
		WithGroup("user").
		Info("done", "id", 7)

	out := buf.String()
	for _, want := range []string{`"service":"queue"`, `"batch.size":10`, `"batch.user.id":7`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	setGlobalLevel(t, zerolog.TraceLevel)
	l := newSlogLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	if l.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled on a warn logger")
	}
	if !l.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled on a warn logger")
	}

	setGlobalLevel(t, zerolog.ErrorLevel)
	l = newSlogLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.TraceLevel))
	if l.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled below the global level")
	}
}

func TestNewSlogLogger_UsesProcessLogger(t *testing.T) {
	setGlobalLevel(t, zerolog.InfoLevel)
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { SetLogger(orig) })

	NewSlogLogger().Info("supervisor started", "service", "queue-processor")
	if !strings.Contains(buf.String(), `"service":"queue-processor"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := zerologLevel(tt.in); got != tt.want {
			t.Errorf("zerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
