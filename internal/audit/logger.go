// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/metrics"
)

// Config holds the audit logger settings.
type Config struct {
	Enabled bool

	// Retention is how long events are kept. Zero keeps them forever.
	Retention time.Duration

	// BufferSize is the capacity of the async write buffer.
	BufferSize int

	// LogToStdout also writes every event to the application log.
	LogToStdout bool
}

// DefaultConfig returns the defaults used when none are configured.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Retention:  90 * 24 * time.Hour,
		BufferSize: 1000,
	}
}

// Logger writes audit events to a Store from a background goroutine.
type Logger struct {
	cfg    Config
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	events    chan *Event
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLogger starts a logger writing to store.
//
//nolint:gocritic // config passed by value mirrors DefaultConfig
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	l := &Logger{
		cfg:    cfg,
		store:  store,
		logger: logging.WithComponent("audit"),
		now:    time.Now,
		events: make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.events:
					l.write(e)
				default:
					return
				}
			}
		case e := <-l.events:
			l.write(e)
		}
	}
}

func (l *Logger) write(e *Event) {
	if l.cfg.LogToStdout {
		if data, err := json.Marshal(e); err == nil {
			l.logger.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, e); err != nil {
		metrics.RecordAuditEvent(string(e.Type), "failed")
		l.logger.Error().Err(err).Str("event_id", e.ID).Msg("Failed to save audit event")
		return
	}
	metrics.RecordAuditEvent(string(e.Type), "written")
}

// Log queues an event. A nil Logger discards it.
func (l *Logger) Log(e *Event) {
	if l == nil || !l.cfg.Enabled {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	select {
	case l.events <- e:
	default:
		metrics.RecordAuditEvent(string(e.Type), "dropped")
		l.logger.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Record builds an event from an HTTP request and queues it.
func (l *Logger) Record(r *http.Request, typ EventType, outcome Outcome, target *Target, description string, metadata map[string]any) {
	if l == nil {
		return
	}
	ctx := r.Context()
	e := &Event{
		Type:          typ,
		Outcome:       outcome,
		Target:        target,
		Source:        SourceFromRequest(r),
		Description:   description,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	}
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			e.Metadata = data
		}
	}
	l.Log(e)
}

// Query reads events from the store.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l == nil || l.store == nil {
		return nil, nil
	}
	return l.store.Query(ctx, filter)
}

// Prune deletes events older than the retention period.
func (l *Logger) Prune(ctx context.Context) (int64, error) {
	if l == nil || l.store == nil || l.cfg.Retention <= 0 {
		return 0, nil
	}
	return l.store.Delete(ctx, l.now().Add(-l.cfg.Retention))
}

// Close drains the buffer and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		close(l.stop)
		l.wg.Wait()
	})
	return nil
}

// SourceFromRequest returns the client address of r. RemoteAddr is used
// as is, so put chi's RealIP middleware in front when behind a proxy.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}
