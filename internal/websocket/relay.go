// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package websocket

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/events"
	"github.com/tomtom215/choreus/internal/logging"
)

// Relay bridges the lifecycle event bus to the websocket hub so dashboards
// see transitions as they happen.
type Relay struct {
	bus *events.Bus
	hub *Hub
	log zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRelay creates a relay.
func NewRelay(bus *events.Bus, hub *Hub) *Relay {
	return &Relay{
		bus: bus,
		hub: hub,
		log: logging.Component("ws-relay"),
	}
}

// Start subscribes to the bus and begins relaying.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	msgs, err := r.bus.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to bus: %w", err)
	}

	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	go r.drain(msgs)

	r.log.Info().Msg("websocket relay started")
	return nil
}

func (r *Relay) drain(msgs <-chan *message.Message) {
	defer close(r.doneCh)

	for msg := range msgs {
		event, err := events.DecodeEvent(msg)
		if err != nil {
			r.log.Error().Err(err).Str("message_id", msg.UUID).Msg("failed to decode event")
			msg.Ack()
			continue
		}
		r.hub.BroadcastJSON(MessageTypeChoreEvent, event)
		msg.Ack()
	}
}

// Stop ends the bus subscription.
func (r *Relay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	r.cancel()
	<-r.doneCh
	r.log.Info().Msg("websocket relay stopped")
	return nil
}
