// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/choreus/internal/models"
)

func testEvent(id string, typ models.EventType) *models.ChoreEvent {
	return &models.ChoreEvent{
		ID:         id,
		Type:       typ,
		ChoreID:    "dishes",
		ChoreName:  "Do the dishes",
		PersonID:   "alice",
		Points:     10,
		OccurredAt: time.Date(2026, time.January, 5, 19, 0, 0, 0, time.UTC),
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := testEvent("evt-1", models.EventChoreClaimed)
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-msgs:
		got, err := DecodeEvent(msg)
		if err != nil {
			t.Fatalf("DecodeEvent() error = %v", err)
		}
		msg.Ack()

		if got.ID != want.ID || got.Type != want.Type || got.ChoreID != want.ChoreID {
			t.Errorf("event = %+v, want %+v", got, want)
		}
		if !got.OccurredAt.Equal(want.OccurredAt) {
			t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, want.OccurredAt)
		}
		if msg.Metadata.Get(MetaEventType) != string(models.EventChoreClaimed) {
			t.Errorf("metadata event_type = %q", msg.Metadata.Get(MetaEventType))
		}
		if msg.Metadata.Get(MetaChoreID) != "dishes" {
			t.Errorf("metadata chore_id = %q", msg.Metadata.Get(MetaChoreID))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestEverySubscriberSeesEveryEvent(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	second, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := bus.Publish(ctx, testEvent("evt-2", models.EventChoreApproved)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, sub := range []struct {
		name string
		ch   <-chan *message.Message
	}{
		{"first", first},
		{"second", second},
	} {
		select {
		case msg := <-sub.ch:
			msg.Ack()
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %s did not receive the event", sub.name)
		}
	}
}
