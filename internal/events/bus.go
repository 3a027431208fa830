// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package events carries the chore lifecycle event stream. The in-process
// bus (Watermill gochannel) fans every event out to all subscribers:
// notification dispatcher, websocket relay and, when enabled, the NATS
// JetStream forwarder.
package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

// TopicLifecycle is the single topic all chore lifecycle events flow on.
const TopicLifecycle = "chores.lifecycle"

// Metadata keys set on every published message.
const (
	MetaEventType = "event_type"
	MetaChoreID   = "chore_id"
	MetaPersonID  = "person_id"
)

// Bus is the in-process event stream.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

// NewBus creates a bus whose subscriber channels buffer up to buffer
// messages each.
func NewBus(buffer int) *Bus {
	log := logging.Component("events")
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(buffer),
		},
		NewWatermillLogger(log),
	)
	return &Bus{pubsub: pubsub, log: log}
}

// Publish encodes and publishes a lifecycle event. Every active subscriber
// receives it.
func (b *Bus) Publish(_ context.Context, event *models.ChoreEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set(MetaEventType, string(event.Type))
	msg.Metadata.Set(MetaChoreID, event.ChoreID)
	if event.PersonID != "" {
		msg.Metadata.Set(MetaPersonID, event.PersonID)
	}

	if err := b.pubsub.Publish(TopicLifecycle, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	return nil
}

// Subscribe returns a channel of lifecycle messages. The subscription ends
// when ctx is cancelled. Consumers must Ack or Nack every message.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicLifecycle)
}

// Close shuts the bus down; all subscriber channels are closed.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// DecodeEvent unmarshals a bus message back into a ChoreEvent.
func DecodeEvent(msg *message.Message) (*models.ChoreEvent, error) {
	event := &models.ChoreEvent{}
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", msg.UUID, err)
	}
	return event, nil
}
