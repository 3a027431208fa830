// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/choreus/internal/events"
	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

const (
	sendTimeout      = 15 * time.Second
	peopleCacheTTL   = 30 * time.Second
	defaultRatePerMn = 30
)

// Dispatcher maps lifecycle events to notifications and fans them out. One
// household-wide rate limiter protects the outbound channels from signal
// bursts (a rollover after downtime can emit dozens of events at once).
type Dispatcher struct {
	bus       *events.Bus
	directory Directory
	notifiers []Notifier
	limiter   *rate.Limiter
	log       zerolog.Logger

	peopleMu  sync.Mutex
	people    map[string]*models.Person
	refreshed time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewDispatcher creates a dispatcher. ratePerMinute bounds total outbound
// notifications per minute across all notifiers.
func NewDispatcher(bus *events.Bus, directory Directory, ratePerMinute int, notifiers ...Notifier) *Dispatcher {
	if ratePerMinute < 1 {
		ratePerMinute = defaultRatePerMn
	}
	return &Dispatcher{
		bus:       bus,
		directory: directory,
		notifiers: notifiers,
		limiter:   rate.NewLimiter(rate.Limit(ratePerMinute)/60, ratePerMinute),
		log:       logging.Component("notify"),
		people:    make(map[string]*models.Person),
	}
}

// Start subscribes to the bus and begins dispatching.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	msgs, err := d.bus.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to bus: %w", err)
	}

	d.running = true
	d.cancel = cancel
	d.doneCh = make(chan struct{})
	go d.drain(runCtx, msgs)

	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		if n.Enabled() {
			names = append(names, n.Name())
		}
	}
	d.log.Info().Strs("notifiers", names).Msg("notification dispatcher started")
	return nil
}

func (d *Dispatcher) drain(ctx context.Context, msgs <-chan *message.Message) {
	defer close(d.doneCh)

	for msg := range msgs {
		event, err := events.DecodeEvent(msg)
		if err != nil {
			d.log.Error().Err(err).Str("message_id", msg.UUID).Msg("failed to decode event")
			msg.Ack()
			continue
		}

		if notification := d.build(ctx, event); notification != nil {
			d.deliver(ctx, notification)
		}
		msg.Ack()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, notification *Notification) {
	if !d.limiter.Allow() {
		metrics.NotificationsThrottled.Inc()
		d.log.Warn().
			Str("template", string(notification.Template)).
			Str("chore_id", notification.ChoreID).
			Msg("notification throttled")
		return
	}

	for _, n := range d.notifiers {
		if !n.Enabled() {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := n.Send(sendCtx, notification)
		cancel()
		if err != nil {
			metrics.NotificationFailures.WithLabelValues(n.Name()).Inc()
			d.log.Error().Err(err).
				Str("notifier", n.Name()).
				Str("template", string(notification.Template)).
				Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsSent.WithLabelValues(n.Name(), string(notification.Template)).Inc()
	}
}

// build renders an event into a notification, or nil for event types that
// carry no user-facing message (skips, cycle resets).
func (d *Dispatcher) build(ctx context.Context, event *models.ChoreEvent) *Notification {
	n := &Notification{
		ChoreID:   event.ChoreID,
		ChoreName: event.ChoreName,
		PersonID:  event.PersonID,
		DueAt:     event.DueAt,
		SentAt:    time.Now(),
	}
	person := d.personName(ctx, event.PersonID)

	switch event.Type {
	case models.EventChoreClaimed:
		n.Template = TemplateAwaitingApproval
		n.Recipients = d.adminNames(ctx)
		n.Title = fmt.Sprintf("%s claimed %q", person, event.ChoreName)
		n.Body = "Waiting for approval."

	case models.EventChoreApproved:
		n.Template = TemplateApproved
		n.Recipients = recipients(person)
		n.Points = event.Points
		n.Title = fmt.Sprintf("%q approved", event.ChoreName)
		n.Body = fmt.Sprintf("%s earned %d points.", person, event.Points)

	case models.EventChoreDisapproved:
		n.Template = TemplateDisapproved
		n.Recipients = recipients(person)
		n.Title = fmt.Sprintf("%q was not approved", event.ChoreName)
		n.Body = "The claim was rejected; the chore is open again."

	case models.EventChoreDueWindow:
		n.Template = TemplateDueSoon
		n.Recipients = recipients(person)
		n.Title = fmt.Sprintf("%q is coming up", event.ChoreName)
		n.Body = fmt.Sprintf("Due %s.", event.DueAt.Format("Mon Jan 2 15:04"))

	case models.EventChoreReminder:
		n.Template = TemplateReminder
		n.Recipients = recipients(person)
		n.Title = fmt.Sprintf("Reminder: %q", event.ChoreName)
		n.Body = fmt.Sprintf("Due %s.", event.DueAt.Format("Mon Jan 2 15:04"))

	case models.EventChoreOverdue:
		n.Template = TemplateOverdue
		n.Recipients = recipients(person)
		n.Title = fmt.Sprintf("%q is overdue", event.ChoreName)
		n.Body = fmt.Sprintf("Was due %s.", event.DueAt.Format("Mon Jan 2 15:04"))

	default:
		return nil
	}
	return n
}

func recipients(name string) []string {
	if name == "" {
		return nil // household-wide
	}
	return []string{name}
}

// personName resolves a person id to their display name, falling back to the
// id itself. Shared-record events carry no person and resolve to "Someone".
func (d *Dispatcher) personName(ctx context.Context, personID string) string {
	if personID == "" {
		return "Someone"
	}
	if p, ok := d.lookup(ctx, personID); ok {
		return p.Name
	}
	return personID
}

func (d *Dispatcher) adminNames(ctx context.Context) []string {
	d.refreshPeople(ctx)
	d.peopleMu.Lock()
	defer d.peopleMu.Unlock()

	var out []string
	for _, p := range d.people {
		if p.IsAdmin() {
			out = append(out, p.Name)
		}
	}
	return out
}

func (d *Dispatcher) lookup(ctx context.Context, personID string) (*models.Person, bool) {
	d.refreshPeople(ctx)
	d.peopleMu.Lock()
	defer d.peopleMu.Unlock()
	p, ok := d.people[personID]
	return p, ok
}

func (d *Dispatcher) refreshPeople(ctx context.Context) {
	d.peopleMu.Lock()
	stale := time.Since(d.refreshed) > peopleCacheTTL
	d.peopleMu.Unlock()
	if !stale {
		return
	}

	people, err := d.directory.ListPeople(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to refresh people cache")
		return
	}

	d.peopleMu.Lock()
	defer d.peopleMu.Unlock()
	d.people = make(map[string]*models.Person, len(people))
	for _, p := range people {
		d.people[p.ID] = p
	}
	d.refreshed = time.Now()
}

// Stop ends the bus subscription.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	d.cancel()
	<-d.doneCh
	d.log.Info().Msg("notification dispatcher stopped")
	return nil
}
