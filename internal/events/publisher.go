// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/recommender/internal/config"
	"github.com/tomtom215/recommender/internal/logging"
	"github.com/tomtom215/recommender/internal/metrics"
	"github.com/tomtom215/recommender/internal/recommend"
)

const breakerName = "event-publisher"

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("event publisher is closed")

// ErrNoSubscriber is returned by Subscribe when events leave the process.
var ErrNoSubscriber = errors.New("events are published to NATS; subscribe there")

// Publisher implements recommend.EventSink on a Watermill publisher.
type Publisher struct {
	publisher message.Publisher

	// local is set for the in-process transport only.
	local *gochannel.GoChannel

	nc     *natsgo.Conn
	server *EmbeddedServer

	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *logging.EventLogger

	mu     sync.RWMutex
	closed bool
}

func wmLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewInProcess returns a publisher backed by a gochannel. Messages
// published without a subscriber are dropped.
func NewInProcess() *Publisher {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, wmLogger())
	p := &Publisher{publisher: ch, local: ch, log: logging.NewEventLogger()}
	p.breaker = newBreaker()
	logging.Info().Str("transport", "gochannel").Msg("Event publisher ready")
	return p
}

// New returns the publisher described by cfg: in-process when NATS is
// disabled, JetStream otherwise.
func New(ctx context.Context, cfg *config.NATSConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return NewInProcess(), nil
	}

	p := &Publisher{log: logging.NewEventLogger()}
	url := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		p.server = srv
		url = srv.ClientURL()
	}

	logger := wmLogger()
	natsOpts := []natsgo.Option{
		natsgo.Name("recommender"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	// This connection manages the stream and backs Health. The Watermill
	// publisher dials its own.
	nc, err := natsgo.Connect(url, natsOpts...)
	if err != nil {
		p.shutdownServer()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		p.closeTransport()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if _, err := EnsureStream(ctx, js, StreamSettings(cfg)); err != nil {
		p.closeTransport()
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		p.closeTransport()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	p.publisher = pub
	p.breaker = newBreaker()

	logging.Info().
		Str("transport", "nats").
		Str("url", url).
		Bool("embedded", cfg.EmbeddedServer).
		Str("stream", cfg.StreamName).
		Msg("Event publisher ready")
	return p, nil
}

func newBreaker() *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Event publisher circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// RecommendationPublished emits a recommendation.published event for f.
func (p *Publisher) RecommendationPublished(ctx context.Context, f *recommend.Flag) error {
	ev := newPublished(f)
	msg, err := newMessage(ev.EventID, f.UserID, ev)
	if err != nil {
		return err
	}
	msg.Metadata.Set("plugin_id", f.PluginID)
	return p.publish(ctx, TopicPublished, msg)
}

// RunCompleted emits a recommendation.run_completed event for st.
func (p *Publisher) RunCompleted(ctx context.Context, st *recommend.UserStatus) error {
	ev := newRunCompleted(st)
	msg, err := newMessage(ev.EventID, st.UserID, ev)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicRunCompleted, msg)
}

func (p *Publisher) publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if id := logging.RunIDFromContext(ctx); id != "" {
		msg.Metadata.Set("run_id", id)
	}
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})

	result := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, result).Inc()
	metrics.RecordEventPublish(topic, err)

	if err != nil {
		p.log.LogPublishFailed(ctx, msg.UUID, topic, err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.LogEventPublished(ctx, msg.UUID, topic)
	return nil
}

// Subscribe returns the in-process messages of topic. Consumers must Ack
// each message.
func (p *Publisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if p.local == nil {
		return nil, ErrNoSubscriber
	}
	ch, err := p.local.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	p.log.LogSubscriptionStarted(topic)
	return ch, nil
}

// Health reports whether events can currently be delivered.
func (p *Publisher) Health(_ context.Context) (ok bool, description string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case p.closed:
		return false, "closed"
	case p.breaker.State() == gobreaker.StateOpen:
		return false, "circuit breaker open"
	case p.nc != nil && !p.nc.IsConnected():
		return false, "NATS " + p.nc.Status().String()
	case p.nc != nil:
		return true, "NATS connected"
	default:
		return true, "in-process"
	}
}

// Close flushes and closes the transport. Closing twice is a no-op.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.publisher.Close()
	p.closeTransport()
	return err
}

func (p *Publisher) closeTransport() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
		}
	}
	p.shutdownServer()
}

func (p *Publisher) shutdownServer() {
	if p.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server shutdown failed")
	}
}

var _ recommend.EventSink = (*Publisher)(nil)
