// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import (
	"context"
	"time"

	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

// Sweep raises time-derived signals across all records: due-window opening,
// reminder, and overdue promotion. Each signal fires at most once per cycle
// because the fired markers persist on the record; running the sweep twice
// in a row is a no-op.
//
// The pass keeps a low-water mark of the earliest future signal boundary so
// that sweeps landing before it exit without scanning anything.
func (e *Engine) Sweep(ctx context.Context) error {
	return e.do(ctx, "sweep", func(now time.Time) error {
		e.sweep(now)
		return nil
	})
}

func (e *Engine) sweep(now time.Time) {
	start := time.Now()
	metrics.SweepRuns.Inc()

	if !e.nextSignalAt.IsZero() && now.Before(e.nextSignalAt) {
		metrics.SweepEarlyExits.Inc()
		return
	}

	var nextSignal time.Time
	mutated := false

	for _, rec := range e.st.records {
		c, ok := e.st.chores[rec.ChoreID]
		if !ok {
			continue
		}
		// Claimed records are frozen until an admin rules on them; terminal
		// and due-less records carry no signals.
		if rec.Status == models.StatusClaimed || rec.Status == models.StatusApproved || rec.DueAt.IsZero() {
			continue
		}

		if e.sweepRecord(c, rec, now) {
			mutated = true
		}
		nextSignal = earliest(nextSignal, recordNextSignal(c, rec, now))
	}

	e.nextSignalAt = nextSignal
	if mutated {
		e.persist(now)
	}
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
}

// sweepRecord applies due-window, reminder and overdue signals to one
// record. Reports whether the record changed.
func (e *Engine) sweepRecord(c *models.Chore, rec *models.AssignmentRecord, now time.Time) bool {
	mutated := false

	if c.DueWindow > 0 && rec.DueWindowFiredAt.IsZero() &&
		now.Before(rec.DueAt) && !now.Before(rec.DueAt.Add(-c.DueWindow)) {
		rec.DueWindowFiredAt = now
		if rec.Status == models.StatusPending {
			rec.Status = models.StatusDue
		}
		metrics.RecordSweepSignal("due_window")
		event := e.eventFor(models.EventChoreDueWindow, c, rec.PersonID, now)
		event.DueAt = rec.DueAt
		e.emit(event)
		mutated = true
	}

	if c.ReminderOffset > 0 && rec.ReminderSentAt.IsZero() &&
		now.Before(rec.DueAt) && !now.Before(rec.DueAt.Add(-c.ReminderOffset)) {
		rec.ReminderSentAt = now
		metrics.RecordSweepSignal("reminder")
		event := e.eventFor(models.EventChoreReminder, c, rec.PersonID, now)
		event.DueAt = rec.DueAt
		e.emit(event)
		mutated = true
	}

	if !now.Before(rec.DueAt) {
		if rec.Status != models.StatusOverdue {
			rec.Status = models.StatusOverdue
			mutated = true
		}
		if rec.OverdueNotifiedAt.IsZero() {
			rec.OverdueNotifiedAt = now
			metrics.RecordSweepSignal("overdue")
			event := e.eventFor(models.EventChoreOverdue, c, rec.PersonID, now)
			event.DueAt = rec.DueAt
			e.emit(event)
			mutated = true
		}
	}

	return mutated
}

// recordNextSignal returns the earliest signal boundary still ahead of now
// for one record, or zero when none remain this cycle.
func recordNextSignal(c *models.Chore, rec *models.AssignmentRecord, now time.Time) time.Time {
	var next time.Time
	if c.DueWindow > 0 && rec.DueWindowFiredAt.IsZero() {
		if b := rec.DueAt.Add(-c.DueWindow); b.After(now) {
			next = earliest(next, b)
		}
	}
	if c.ReminderOffset > 0 && rec.ReminderSentAt.IsZero() {
		if b := rec.DueAt.Add(-c.ReminderOffset); b.After(now) {
			next = earliest(next, b)
		}
	}
	if rec.OverdueNotifiedAt.IsZero() && rec.DueAt.After(now) {
		next = earliest(next, rec.DueAt)
	}
	return next
}

func earliest(a, b time.Time) time.Time {
	switch {
	case b.IsZero():
		return a
	case a.IsZero(), b.Before(a):
		return b
	}
	return a
}
