// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/choreus/internal/events"
	"github.com/tomtom215/choreus/internal/models"
)

type fakeNotifier struct {
	name     string
	enabled  bool
	received chan *Notification
}

func newFakeNotifier(name string) *fakeNotifier {
	return &fakeNotifier{name: name, enabled: true, received: make(chan *Notification, 16)}
}

func (f *fakeNotifier) Name() string  { return f.name }
func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) Send(_ context.Context, n *Notification) error {
	f.received <- n
	return nil
}

type fakeDirectory struct {
	people []*models.Person
}

func (d *fakeDirectory) ListPeople(_ context.Context) ([]*models.Person, error) {
	return d.people, nil
}

func household() *fakeDirectory {
	return &fakeDirectory{people: []*models.Person{
		{ID: "alice", Name: "Alice", Role: models.RoleAdmin},
		{ID: "bob", Name: "Bob", Role: models.RoleMember},
	}}
}

func startDispatcher(t *testing.T, ratePerMinute int) (*events.Bus, *fakeNotifier) {
	t.Helper()
	bus := events.NewBus(16)
	t.Cleanup(func() { bus.Close() })

	sink := newFakeNotifier("sink")
	d := NewDispatcher(bus, household(), ratePerMinute, sink)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return bus, sink
}

func lifecycleEvent(typ models.EventType, personID string) *models.ChoreEvent {
	return &models.ChoreEvent{
		ID:         "evt-1",
		Type:       typ,
		ChoreID:    "dishes",
		ChoreName:  "Do the dishes",
		PersonID:   personID,
		Points:     10,
		DueAt:      time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
		OccurredAt: time.Now(),
	}
}

func receive(t *testing.T, sink *fakeNotifier) *Notification {
	t.Helper()
	select {
	case n := <-sink.received:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func TestClaimNotifiesAdmins(t *testing.T) {
	bus, sink := startDispatcher(t, 60)

	if err := bus.Publish(context.Background(), lifecycleEvent(models.EventChoreClaimed, "bob")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	n := receive(t, sink)
	if n.Template != TemplateAwaitingApproval {
		t.Errorf("Template = %s", n.Template)
	}
	if len(n.Recipients) != 1 || n.Recipients[0] != "Alice" {
		t.Errorf("Recipients = %v, want the admins", n.Recipients)
	}
	if n.Title != `Bob claimed "Do the dishes"` {
		t.Errorf("Title = %q", n.Title)
	}
}

func TestApprovalNotifiesThePerson(t *testing.T) {
	bus, sink := startDispatcher(t, 60)

	if err := bus.Publish(context.Background(), lifecycleEvent(models.EventChoreApproved, "bob")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	n := receive(t, sink)
	if n.Template != TemplateApproved {
		t.Errorf("Template = %s", n.Template)
	}
	if len(n.Recipients) != 1 || n.Recipients[0] != "Bob" {
		t.Errorf("Recipients = %v", n.Recipients)
	}
	if n.Points != 10 {
		t.Errorf("Points = %d", n.Points)
	}
}

func TestSharedOverdueAddressesHousehold(t *testing.T) {
	bus, sink := startDispatcher(t, 60)

	if err := bus.Publish(context.Background(), lifecycleEvent(models.EventChoreOverdue, "")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	n := receive(t, sink)
	if n.Template != TemplateOverdue {
		t.Errorf("Template = %s", n.Template)
	}
	if len(n.Recipients) != 0 {
		t.Errorf("Recipients = %v, want household-wide", n.Recipients)
	}
}

func TestSilentEventTypesProduceNothing(t *testing.T) {
	bus, sink := startDispatcher(t, 60)
	ctx := context.Background()

	if err := bus.Publish(ctx, lifecycleEvent(models.EventCycleReset, "bob")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Publish(ctx, lifecycleEvent(models.EventChoreSkipped, "bob")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	// A notifying event after the silent ones proves they were skipped, not
	// merely still in flight.
	if err := bus.Publish(ctx, lifecycleEvent(models.EventChoreReminder, "bob")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	n := receive(t, sink)
	if n.Template != TemplateReminder {
		t.Errorf("Template = %s, silent events leaked through", n.Template)
	}
	select {
	case n := <-sink.received:
		t.Errorf("unexpected extra notification: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcherThrottlesBursts(t *testing.T) {
	bus, sink := startDispatcher(t, 1) // burst of one
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, lifecycleEvent(models.EventChoreOverdue, "bob")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	receive(t, sink)
	select {
	case n := <-sink.received:
		t.Errorf("burst not throttled, got %+v", n)
	case <-time.After(200 * time.Millisecond):
	}
}
