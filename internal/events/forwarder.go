// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
)

// ForwarderConfig configures the NATS JetStream bridge.
type ForwarderConfig struct {
	URL     string
	Subject string
}

// Forwarder bridges the in-process bus to NATS JetStream so external
// consumers (points, badges, dashboards) can process the lifecycle stream
// durably. Delivery is fire-and-forget from the engine's perspective: a
// failed forward is counted and logged, never retried into the engine's
// path. The circuit breaker keeps a dead NATS endpoint from stalling the
// drain loop on every message.
type Forwarder struct {
	bus       *Bus
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	subject   string
	log       zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewForwarder connects to NATS and prepares the bridge. The JetStream
// stream is auto-provisioned on first publish.
func NewForwarder(cfg ForwarderConfig, bus *Bus) (*Forwarder, error) {
	log := logging.Component("nats-forwarder")
	wmLogger := NewWatermillLogger(log)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	publisher, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:     "nats-forwarder",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn().Str("state", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Forwarder{
		bus:       bus,
		publisher: publisher,
		breaker:   breaker,
		subject:   cfg.Subject,
		log:       log,
	}, nil
}

// Start subscribes to the bus and begins forwarding.
func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	msgs, err := f.bus.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to bus: %w", err)
	}

	f.running = true
	f.cancel = cancel
	f.doneCh = make(chan struct{})
	go f.drain(msgs)

	f.log.Info().Str("subject", f.subject).Msg("NATS forwarder started")
	return nil
}

func (f *Forwarder) drain(msgs <-chan *message.Message) {
	defer close(f.doneCh)

	for msg := range msgs {
		// The message UUID doubles as the JetStream dedup id, so a
		// restarted forwarder never double-delivers within the dedup window.
		if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
			msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		}

		_, err := f.breaker.Execute(func() (interface{}, error) {
			return nil, f.publisher.Publish(f.subject, msg)
		})
		if err != nil {
			metrics.NATSForwardFailures.Inc()
			f.log.Error().Err(err).Str("event_id", msg.UUID).Msg("failed to forward event")
		} else {
			metrics.NATSMessagesForwarded.Inc()
		}

		// Always ack: the bus is not a retry queue, and JetStream dedup
		// would drop a re-publish of an already-forwarded id anyway.
		msg.Ack()
	}
}

// Stop ends the bus subscription and closes the NATS publisher.
func (f *Forwarder) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return nil
	}
	f.running = false

	f.cancel()
	<-f.doneCh

	if err := f.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close NATS publisher: %w", err)
	}
	f.log.Info().Msg("NATS forwarder stopped")
	return nil
}
