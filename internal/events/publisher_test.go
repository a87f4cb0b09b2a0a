// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/metrics"
	"github.com/tomtom215/recommender/internal/recommend"
)

func TestPublisher_InProcess(t *testing.T) {
	p := NewInProcess()
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	published, err := p.Subscribe(ctx, TopicPublished)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	completed, err := p.Subscribe(ctx, TopicRunCompleted)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(TopicPublished, "success"))

	created := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	flag := &recommend.Flag{
		ID: "f-1", FlagType: "recommended", UserID: 7, ContentID: 42,
		PluginID: "new_content", Reason: "new", Score: 0.5, Created: created,
	}
	runCtx := logging.ContextWithRunID(ctx, "run-1")
	if err := p.RecommendationPublished(runCtx, flag); err != nil {
		t.Fatalf("RecommendationPublished() error = %v", err)
	}

	select {
	case msg := <-published:
		msg.Ack()
		ev, err := DecodePublished(msg)
		if err != nil {
			t.Fatalf("DecodePublished() error = %v", err)
		}
		if ev.UserID != 7 || ev.ContentID != 42 || ev.PluginID != "new_content" || ev.FlagID != "f-1" {
			t.Errorf("event = %+v", ev)
		}
		if !ev.Created.Equal(created) {
			t.Errorf("created = %v, want %v", ev.Created, created)
		}
		if got := msg.Metadata.Get("run_id"); got != "run-1" {
			t.Errorf("run_id metadata = %q", got)
		}
		if got := msg.Metadata.Get("user_id"); got != "7" {
			t.Errorf("user_id metadata = %q", got)
		}
	case <-ctx.Done():
		t.Fatal("no published event received")
	}

	if got := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(TopicPublished, "success")); got != before+1 {
		t.Errorf("events published = %v, want %v", got, before+1)
	}

	updated := created.Add(time.Minute)
	st := &recommend.UserStatus{
		UserID: 7, Status: recommend.StatusReady, Retrieved: 3,
		Duration: 1500 * time.Millisecond, Updated: &updated, RunID: "run-1",
	}
	if err := p.RunCompleted(ctx, st); err != nil {
		t.Fatalf("RunCompleted() error = %v", err)
	}
	select {
	case msg := <-completed:
		msg.Ack()
		ev, err := DecodeRunCompleted(msg)
		if err != nil {
			t.Fatalf("DecodeRunCompleted() error = %v", err)
		}
		if ev.Status != string(recommend.StatusReady) || ev.DurationMS != 1500 || ev.Retrieved != 3 {
			t.Errorf("event = %+v", ev)
		}
		if !ev.Completed.Equal(updated) {
			t.Errorf("completed = %v, want %v", ev.Completed, updated)
		}
	case <-ctx.Done():
		t.Fatal("no run completed event received")
	}
}

func TestPublisher_Closed(t *testing.T) {
	p := NewInProcess()
	if ok, _ := p.Health(context.Background()); !ok {
		t.Error("Health() before Close = false")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err := p.RunCompleted(context.Background(), &recommend.UserStatus{UserID: 1})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("RunCompleted() after Close error = %v, want ErrClosed", err)
	}
	if ok, desc := p.Health(context.Background()); ok || desc != "closed" {
		t.Errorf("Health() after Close = %v, %q", ok, desc)
	}
}

func TestNew_DisabledIsInProcess(t *testing.T) {
	p, err := New(context.Background(), &config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()
	if _, desc := p.Health(context.Background()); desc != "in-process" {
		t.Errorf("Health() description = %q, want in-process", desc)
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		raw      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{raw: "", wantHost: "127.0.0.1", wantPort: server.RANDOM_PORT},
		{raw: "nats://127.0.0.1:4333", wantHost: "127.0.0.1", wantPort: 4333},
		{raw: "nats://localhost", wantHost: "localhost", wantPort: server.DEFAULT_PORT},
		{raw: "nats://host:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, port, err := listenAddr(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("listenAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("listenAddr() = %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

type mockStreamManager struct {
	mu      sync.Mutex
	exists  bool
	lookErr error
	calls   []string
}

func (m *mockStreamManager) Stream(_ context.Context, _ string) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "stream")
	if m.lookErr != nil {
		return nil, m.lookErr
	}
	if !m.exists {
		return nil, jetstream.ErrStreamNotFound
	}
	return nil, nil
}

func (m *mockStreamManager) CreateStream(_ context.Context, _ jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create")
	return nil, nil
}

func (m *mockStreamManager) UpdateStream(_ context.Context, _ jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "update")
	return nil, nil
}

func TestEnsureStream(t *testing.T) {
	cfg := StreamSettings(&config.NATSConfig{StreamName: "RECOMMENDATIONS", StreamRetentionDays: 7})
	if cfg.MaxAge != 7*24*time.Hour {
		t.Errorf("MaxAge = %v", cfg.MaxAge)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "recommendation.>" {
		t.Errorf("Subjects = %v", cfg.Subjects)
	}

	tests := []struct {
		name    string
		mock    *mockStreamManager
		want    []string
		wantErr bool
	}{
		{name: "create", mock: &mockStreamManager{}, want: []string{"stream", "create"}},
		{name: "update", mock: &mockStreamManager{exists: true}, want: []string{"stream", "update"}},
		{name: "lookup error", mock: &mockStreamManager{lookErr: errors.New("timeout")}, want: []string{"stream"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EnsureStream(context.Background(), tt.mock, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EnsureStream() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.mock.calls) != len(tt.want) {
				t.Fatalf("calls = %v, want %v", tt.mock.calls, tt.want)
			}
			for i := range tt.want {
				if tt.mock.calls[i] != tt.want[i] {
					t.Errorf("calls = %v, want %v", tt.mock.calls, tt.want)
				}
			}
		})
	}
}
