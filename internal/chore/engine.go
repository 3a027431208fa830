// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package chore implements the lifecycle engine: a single-actor command loop
// that owns all live chore state. Every mutation and read runs as a command
// on one goroutine, which makes transitions atomic without any locking in
// the state itself. The actor emits lifecycle events to the bus and hands a
// full state snapshot to the snapshot store after each committed mutation.
package chore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
	"github.com/tomtom215/choreus/internal/recurrence"
	"github.com/tomtom215/choreus/internal/snapshot"
)

// Archiver receives one row per ended cycle. The engine never blocks on it;
// implementations buffer and flush on their own schedule.
type Archiver interface {
	Append(row models.CycleRecord)
}

// Publisher receives lifecycle events drained from the engine's event queue.
type Publisher interface {
	Publish(ctx context.Context, event *models.ChoreEvent) error
}

// Options configures the engine.
type Options struct {
	// Location is the household timezone all recurrence math runs in.
	Location *time.Location

	// CommandBuffer sizes the command queue; submitters block when full.
	CommandBuffer int

	// EventBuffer sizes the outbound event queue; events are dropped (and
	// counted) when it overflows rather than stalling the actor.
	EventBuffer int

	Snapshots snapshot.Store
	Archive   Archiver
	Publisher Publisher

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type command struct {
	name  string
	fn    func(now time.Time) error
	errCh chan error
}

// Engine is the chore lifecycle actor.
type Engine struct {
	st        *store
	calc      *recurrence.Calculator
	snapshots snapshot.Store
	archive   Archiver
	publisher Publisher
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time

	cmdCh   chan command
	eventCh chan *models.ChoreEvent

	// nextSignalAt is the sweep low-water mark: no signal boundary exists
	// before this instant, so sweeps before it exit without scanning.
	// Actor-owned.
	nextSignalAt time.Time

	mu        sync.Mutex
	stopCh    chan struct{}
	doneCh    chan struct{}
	pubDoneCh chan struct{}
	started   bool
	stopped   bool
}

// NewEngine creates an engine. Call Bootstrap before Start.
func NewEngine(opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	cmdBuf := opts.CommandBuffer
	if cmdBuf < 1 {
		cmdBuf = 256
	}
	evtBuf := opts.EventBuffer
	if evtBuf < 1 {
		evtBuf = 1024
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		st:        newStore(),
		calc:      recurrence.NewCalculator(loc),
		snapshots: opts.Snapshots,
		archive:   opts.Archive,
		publisher: opts.Publisher,
		loc:       loc,
		log:       logging.Component("engine"),
		now:       now,
		cmdCh:     make(chan command, cmdBuf),
		eventCh:   make(chan *models.ChoreEvent, evtBuf),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		pubDoneCh: make(chan struct{}),
	}
}

// SeedChore pairs a configured chore template with its optional explicit
// initial due timestamp.
type SeedChore struct {
	Chore *models.Chore
	DueAt time.Time
}

// Seed is the configured state applied at boot on top of the snapshot.
type Seed struct {
	People []*models.Person
	Chores []SeedChore
}

// Bootstrap loads the snapshot (if any) and layers configured seeds on top:
// people and chore templates are upserted by id, with configured template
// fields winning over snapshot values, while live assignment records survive
// untouched. Must be called before Start; it runs on the caller's goroutine.
func (e *Engine) Bootstrap(snap *models.Snapshot, seed Seed) {
	now := e.now()

	if snap != nil {
		e.st.loadSnapshot(snap)
		e.log.Info().
			Int("people", len(snap.People)).
			Int("chores", len(snap.Chores)).
			Int("records", len(snap.Records)).
			Time("saved_at", snap.SavedAt).
			Msg("snapshot restored")
	}

	for _, p := range seed.People {
		cp := *p
		if existing, ok := e.st.people[p.ID]; ok {
			cp.CreatedAt = existing.CreatedAt
		} else if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		e.st.people[cp.ID] = &cp
	}

	for _, sc := range seed.Chores {
		c := cloneChore(sc.Chore)
		if existing, ok := e.st.chores[c.ID]; ok {
			c.CreatedAt = existing.CreatedAt
		} else if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		e.st.chores[c.ID] = c
		e.reconcileRecords(c, sc.DueAt, now)
	}

	e.nextSignalAt = time.Time{}
}

// Start launches the actor and event publisher goroutines.
func (e *Engine) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	e.started = true
	go e.run()
	go e.publishLoop()
	e.log.Info().Msg("engine started")
	return nil
}

// Stop drains queued commands, flushes the event queue and stops both
// goroutines. Commands submitted after Stop fail with ErrEngineStopped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped {
		return nil
	}
	e.stopped = true
	close(e.stopCh)
	<-e.doneCh
	close(e.eventCh)
	<-e.pubDoneCh
	e.log.Info().Msg("engine stopped")
	return nil
}

func (e *Engine) run() {
	defer close(e.doneCh)
	for {
		select {
		case cmd := <-e.cmdCh:
			e.execute(cmd)
		case <-e.stopCh:
			for {
				select {
				case cmd := <-e.cmdCh:
					e.execute(cmd)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) execute(cmd command) {
	start := time.Now()
	err := cmd.fn(e.now())
	metrics.RecordEngineCommand(cmd.name, classify(err), time.Since(start))
	metrics.EngineCommandQueueDepth.Set(float64(len(e.cmdCh)))
	cmd.errCh <- err
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrChoreNotFound), errors.Is(err, ErrPersonNotFound):
		return "not_found"
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrNotClaimed),
		errors.Is(err, ErrAlreadyExists):
		return "rejected"
	default:
		return "error"
	}
}

// do submits a command and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func(now time.Time) error) error {
	select {
	case <-e.stopCh:
		return ErrEngineStopped
	default:
	}

	errCh := make(chan error, 1)
	select {
	case e.cmdCh <- command{name: name, fn: fn, errCh: errCh}:
	case <-e.stopCh:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.doneCh:
		// The actor drained its queue and exited; our command either ran
		// during the drain or will never run.
		select {
		case err := <-errCh:
			return err
		default:
			return ErrEngineStopped
		}
	}
}

// emit queues a lifecycle event for publication. Never blocks the actor: a
// full queue drops the event and counts it.
func (e *Engine) emit(event *models.ChoreEvent) {
	select {
	case e.eventCh <- event:
	default:
		metrics.EventsDropped.Inc()
		e.log.Warn().
			Str("event_type", string(event.Type)).
			Str("chore_id", event.ChoreID).
			Msg("event queue full, dropping event")
	}
}

func (e *Engine) publishLoop() {
	defer close(e.pubDoneCh)
	for event := range e.eventCh {
		if e.publisher == nil {
			continue
		}
		if err := e.publisher.Publish(context.Background(), event); err != nil {
			e.log.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", string(event.Type)).
				Msg("failed to publish event")
		}
	}
}

// persist hands the current state to the snapshot store. Cheap relative to
// command volume at household scale; the store coalesces bursts.
func (e *Engine) persist(now time.Time) {
	if e.snapshots == nil {
		return
	}
	e.snapshots.RequestSave(e.st.snapshot(now))
}

// effectiveRule resolves the recurrence rule for one record, honoring
// per-person overrides on independent chores.
func (e *Engine) effectiveRule(c *models.Chore, personID string) recurrence.Rule {
	raw := c.Rule
	if personID != "" && c.Discipline == models.DisciplineIndependent {
		if ov, ok := c.Overrides[personID]; ok && ov.Rule != "" {
			raw = ov.Rule
		}
	}
	rule, err := recurrence.Parse(raw)
	if err != nil {
		// Rules are validated at the config and API boundaries; reaching
		// this means a snapshot from a newer schema or a bug.
		e.log.Error().Err(err).
			Str("chore_id", c.ID).
			Str("rule", raw).
			Msg("stored recurrence rule failed to parse")
		return recurrence.Rule{}
	}
	return rule
}

// reconcileRecords aligns a chore's assignment records with its discipline
// and assignee list: missing records are materialized, records for removed
// assignees (or the wrong shape after a discipline change) are dropped, and
// existing matching records keep their live cycle state.
func (e *Engine) reconcileRecords(c *models.Chore, explicitDue time.Time, now time.Time) {
	want := make(map[string]bool)
	if c.IsShared() {
		want[recordKey(c.ID, "")] = true
	} else {
		for _, personID := range c.AssigneeIDs {
			want[recordKey(c.ID, personID)] = true
		}
	}

	for _, rec := range e.st.choreRecords(c.ID) {
		key := recordKey(rec.ChoreID, rec.PersonID)
		if !want[key] {
			delete(e.st.records, key)
		}
	}

	for key := range want {
		if _, ok := e.st.records[key]; ok {
			continue
		}
		personID := key[len(c.ID)+1:]
		e.st.records[key] = e.newRecord(c, personID, explicitDue, now)
	}
}

// newRecord materializes the first cycle for one assignment.
func (e *Engine) newRecord(c *models.Chore, personID string, explicitDue time.Time, now time.Time) *models.AssignmentRecord {
	due := explicitDue
	if personID != "" && c.Discipline == models.DisciplineIndependent {
		if ov, ok := c.Overrides[personID]; ok && ov.DueAt != nil {
			due = *ov.DueAt
		}
	}
	if due.IsZero() {
		rule := e.effectiveRule(c, personID)
		if !rule.IsZero() {
			due = e.calc.NextDueFiltered(rule, now, now, false, c.ApplicableDays)
		}
	}

	rec := &models.AssignmentRecord{
		ChoreID:        c.ID,
		PersonID:       personID,
		DueAt:          due,
		CycleStartedAt: now,
	}
	rec.Status = statusForTime(c, rec, now)
	return rec
}

// statusForTime derives the unclaimed status of a record from its due
// timestamp: overdue past due, due inside the due window, pending otherwise.
func statusForTime(c *models.Chore, rec *models.AssignmentRecord, now time.Time) models.Status {
	if rec.DueAt.IsZero() {
		return models.StatusPending
	}
	if !now.Before(rec.DueAt) {
		return models.StatusOverdue
	}
	if c.DueWindow > 0 && !now.Before(rec.DueAt.Add(-c.DueWindow)) {
		return models.StatusDue
	}
	return models.StatusPending
}

func (e *Engine) eventFor(typ models.EventType, c *models.Chore, personID string, now time.Time) *models.ChoreEvent {
	return &models.ChoreEvent{
		ID:         newEventID(),
		Type:       typ,
		ChoreID:    c.ID,
		ChoreName:  c.Name,
		PersonID:   personID,
		Points:     c.Points,
		OccurredAt: now,
	}
}

// requireChore looks a chore up or fails with a wrapped ErrChoreNotFound.
func (e *Engine) requireChore(choreID string) (*models.Chore, error) {
	c, ok := e.st.chores[choreID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChoreNotFound, choreID)
	}
	return c, nil
}
