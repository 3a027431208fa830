// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/choreus/internal/models"
)

func newEventID() string {
	return uuid.New().String()
}

// Claim marks a chore as done by personID, moving the record to "claimed"
// pending admin approval.
//
// Independent chores claim the claimant's own record. shared_first claims the
// group record exclusively: a second claim is rejected. shared_all
// accumulates individual claims and the record becomes claimed only once
// every assignee has claimed.
func (e *Engine) Claim(ctx context.Context, choreID, personID string) error {
	return e.do(ctx, "claim", func(now time.Time) error {
		if err := e.claim(choreID, personID, now); err != nil {
			return err
		}
		e.persist(now)
		return nil
	})
}

func (e *Engine) claim(choreID, personID string, now time.Time) error {
	c, err := e.requireChore(choreID)
	if err != nil {
		return err
	}
	if _, ok := e.st.people[personID]; !ok {
		return fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
	}
	if !c.HasAssignee(personID) {
		return fmt.Errorf("%w: %s is not assigned to %s", ErrIllegalTransition, personID, choreID)
	}

	rec, err := e.requireRecord(c, personID)
	if err != nil {
		return err
	}

	switch rec.Status {
	case models.StatusApproved:
		return fmt.Errorf("%w: %s is complete", ErrIllegalTransition, choreID)
	case models.StatusClaimed:
		return fmt.Errorf("%w: %s is already claimed", ErrIllegalTransition, choreID)
	}

	if c.Discipline == models.DisciplineSharedAll {
		if rec.HasClaimant(personID) {
			return fmt.Errorf("%w: %s already claimed %s", ErrIllegalTransition, personID, choreID)
		}
		rec.ClaimantIDs = append(rec.ClaimantIDs, personID)
		rec.ClaimedBy = personID
		if len(rec.ClaimantIDs) >= len(c.AssigneeIDs) {
			rec.Status = models.StatusClaimed
			rec.ClaimedAt = now
		}
	} else {
		rec.Status = models.StatusClaimed
		rec.ClaimedBy = personID
		rec.ClaimedAt = now
	}

	event := e.eventFor(models.EventChoreClaimed, c, personID, now)
	event.DueAt = rec.DueAt
	e.emit(event)

	e.log.Info().
		Str("chore_id", choreID).
		Str("person_id", personID).
		Str("status", string(rec.Status)).
		Msg("chore claimed")
	return nil
}

// Approve confirms a claimed chore. The cycle is archived with its points
// (credited to every assignee for shared chores), the due timestamp advances
// immediately per the recurrence rule, and the new cycle begins.
//
// A claim that straddled a rollover boundary (PendingResetAt set) is
// attributed to the cycle it was claimed in; the advance anchors to that
// cycle's due timestamp either way, so late approval never shifts the
// schedule.
func (e *Engine) Approve(ctx context.Context, choreID, personID, actorID string) error {
	return e.do(ctx, "approve", func(now time.Time) error {
		if err := e.approve(choreID, personID, actorID, now); err != nil {
			return err
		}
		e.persist(now)
		return nil
	})
}

func (e *Engine) approve(choreID, personID, actorID string, now time.Time) error {
	c, err := e.requireChore(choreID)
	if err != nil {
		return err
	}
	rec, err := e.requireRecord(c, personID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusClaimed {
		return fmt.Errorf("%w: %s is %s", ErrNotClaimed, choreID, rec.Status)
	}

	cycleDue := rec.DueAt
	cycleStart := cycleStartFor(rec)
	claimedAt := rec.ClaimedAt

	for _, pid := range e.affectedAssignees(c, rec) {
		e.archiveRow(models.CycleRecord{
			ChoreID:        c.ID,
			ChoreName:      c.Name,
			PersonID:       pid,
			CycleStartedAt: cycleStart,
			DueAt:          cycleDue,
			Outcome:        models.OutcomeApproved,
			Points:         c.Points,
			ClaimedAt:      claimedAt,
			ApprovedAt:     now,
			ApprovedBy:     actorID,
		}, now)

		event := e.eventFor(models.EventChoreApproved, c, pid, now)
		event.ActorID = actorID
		event.DueAt = cycleDue
		e.emit(event)
	}

	rule := e.effectiveRule(c, rec.PersonID)
	var next time.Time
	if !rule.IsZero() {
		anchor := cycleDue
		if rule.FromCompletion() {
			anchor = claimedAt
			if anchor.IsZero() {
				anchor = now
			}
		}
		next = e.calc.NextDueFiltered(rule, anchor, now, true, c.ApplicableDays)
	}

	if next.IsZero() {
		// One-shot chore: terminal.
		clearClaim(rec)
		clearCycleMarkers(rec)
		rec.Status = models.StatusApproved
		rec.LastCompletedAt = now
	} else {
		resetRecord(rec, next, now)
		rec.LastCompletedAt = now
		rec.Status = statusForTime(c, rec, now)
	}
	e.nextSignalAt = time.Time{}

	e.log.Info().
		Str("chore_id", choreID).
		Str("actor_id", actorID).
		Time("next_due", next).
		Msg("chore approved")
	return nil
}

// Disapprove rejects a claim. The record reverts to its time-derived status
// with the due timestamp untouched, so the claimant can redo the work and
// claim again. For shared_all the whole claimant set is cleared.
//
// If a rollover boundary passed while the claim was pending, the rejection
// finalizes the deferred reset: the old cycle is archived as missed and the
// schedule advances.
func (e *Engine) Disapprove(ctx context.Context, choreID, personID, actorID string) error {
	return e.do(ctx, "disapprove", func(now time.Time) error {
		if err := e.disapprove(choreID, personID, actorID, now); err != nil {
			return err
		}
		e.persist(now)
		return nil
	})
}

func (e *Engine) disapprove(choreID, personID, actorID string, now time.Time) error {
	c, err := e.requireChore(choreID)
	if err != nil {
		return err
	}
	rec, err := e.requireRecord(c, personID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusClaimed {
		return fmt.Errorf("%w: %s is %s", ErrNotClaimed, choreID, rec.Status)
	}

	claimant := rec.ClaimedBy
	deferred := !rec.PendingResetAt.IsZero()

	if deferred {
		e.finalizeMissedCycle(c, rec, now)
	} else {
		clearClaim(rec)
		rec.Status = statusForTime(c, rec, now)
	}
	e.nextSignalAt = time.Time{}

	event := e.eventFor(models.EventChoreDisapproved, c, claimant, now)
	event.ActorID = actorID
	event.DueAt = rec.DueAt
	e.emit(event)

	e.log.Info().
		Str("chore_id", choreID).
		Str("actor_id", actorID).
		Bool("deferred_reset", deferred).
		Msg("chore disapproved")
	return nil
}

// SetDueDate replaces the due timestamp on every live record of the chore.
// Claim state and already-fired signal markers survive: moving a due date
// never re-fires reminders that already went out this cycle.
func (e *Engine) SetDueDate(ctx context.Context, choreID string, dueAt time.Time) error {
	return e.do(ctx, "set_due_date", func(now time.Time) error {
		if err := e.setDueDate(choreID, dueAt, now); err != nil {
			return err
		}
		e.persist(now)
		return nil
	})
}

func (e *Engine) setDueDate(choreID string, dueAt time.Time, now time.Time) error {
	c, err := e.requireChore(choreID)
	if err != nil {
		return err
	}

	changed := false
	for _, rec := range e.st.choreRecords(choreID) {
		if rec.Status == models.StatusApproved {
			continue
		}
		rec.DueAt = dueAt
		if rec.Status != models.StatusClaimed {
			rec.Status = statusForTime(c, rec, now)
		}
		changed = true
	}
	if !changed {
		return fmt.Errorf("%w: %s has no active cycle", ErrIllegalTransition, choreID)
	}
	e.nextSignalAt = time.Time{}

	e.log.Info().Str("chore_id", choreID).Time("due_at", dueAt).Msg("due date set")
	return nil
}

// Skip ends the current cycle of every live record without completion: the
// cycle is archived as skipped with zero points, signal markers clear, and
// the due timestamp advances per the recurrence rule.
func (e *Engine) Skip(ctx context.Context, choreID string) error {
	return e.do(ctx, "skip", func(now time.Time) error {
		if err := e.skip(choreID, now); err != nil {
			return err
		}
		e.persist(now)
		return nil
	})
}

func (e *Engine) skip(choreID string, now time.Time) error {
	c, err := e.requireChore(choreID)
	if err != nil {
		return err
	}

	advanced := false
	for _, rec := range e.st.choreRecords(choreID) {
		if rec.Status == models.StatusApproved {
			continue
		}
		rule := e.effectiveRule(c, rec.PersonID)
		if rule.IsZero() {
			continue
		}

		anchor := rec.DueAt
		if rule.FromCompletion() || anchor.IsZero() {
			// Skipping a completion-anchored chore restarts its interval now.
			anchor = now
		}
		next := e.calc.NextDueFiltered(rule, anchor, now, true, c.ApplicableDays)
		if next.IsZero() {
			continue
		}

		e.archiveRow(models.CycleRecord{
			ChoreID:        c.ID,
			ChoreName:      c.Name,
			PersonID:       rec.PersonID,
			CycleStartedAt: rec.CycleStartedAt,
			DueAt:          rec.DueAt,
			Outcome:        models.OutcomeSkipped,
		}, now)

		// A pending claim survives the skip and attaches to the new cycle.
		claimed := rec.Status == models.StatusClaimed
		resetRecordKeepClaim(rec, next, now)
		if !claimed {
			rec.Status = statusForTime(c, rec, now)
		}

		event := e.eventFor(models.EventChoreSkipped, c, rec.PersonID, now)
		event.DueAt = next
		e.emit(event)
		advanced = true
	}
	if !advanced {
		return fmt.Errorf("%w: %s has nothing to skip", ErrIllegalTransition, choreID)
	}
	e.nextSignalAt = time.Time{}

	e.log.Info().Str("chore_id", choreID).Msg("chore skipped to next cycle")
	return nil
}

// finalizeMissedCycle archives the record's current cycle as missed and
// advances to the next one. Used by the rollover pass and by disapprove when
// a reset was deferred behind a pending claim.
func (e *Engine) finalizeMissedCycle(c *models.Chore, rec *models.AssignmentRecord, now time.Time) {
	for _, pid := range e.affectedAssignees(c, rec) {
		e.archiveRow(models.CycleRecord{
			ChoreID:        c.ID,
			ChoreName:      c.Name,
			PersonID:       pid,
			CycleStartedAt: cycleStartFor(rec),
			DueAt:          rec.DueAt,
			Outcome:        models.OutcomeMissed,
			ClaimedAt:      rec.ClaimedAt,
		}, now)
	}

	rule := e.effectiveRule(c, rec.PersonID)
	if rule.IsZero() || rule.FromCompletion() {
		// No unconditional schedule to advance to: completion-anchored rules
		// wait for an actual completion. Clear the claim and stay put.
		clearClaim(rec)
		rec.PendingResetAt = time.Time{}
		rec.Status = statusForTime(c, rec, now)
		return
	}

	next := e.calc.NextDueFiltered(rule, rec.DueAt, now, true, c.ApplicableDays)
	resetRecord(rec, next, now)
	rec.Status = statusForTime(c, rec, now)

	event := e.eventFor(models.EventCycleReset, c, rec.PersonID, now)
	event.DueAt = next
	e.emit(event)
}

// cycleStartFor resolves which cycle an archive row belongs to. A claim that
// straddled a deferred rollover boundary is bucketed by its claim timestamp:
// claimed before the boundary, the row stays with the old cycle; claimed at
// or after it, the row belongs to the cycle the boundary opened.
func cycleStartFor(rec *models.AssignmentRecord) time.Time {
	if !rec.PendingResetAt.IsZero() && !rec.ClaimedAt.IsZero() && !rec.ClaimedAt.Before(rec.PendingResetAt) {
		return rec.PendingResetAt
	}
	return rec.CycleStartedAt
}

// affectedAssignees lists the people a cycle outcome applies to: every
// assignee for shared chores, the record's own person otherwise.
func (e *Engine) affectedAssignees(c *models.Chore, rec *models.AssignmentRecord) []string {
	if c.IsShared() {
		return append([]string(nil), c.AssigneeIDs...)
	}
	return []string{rec.PersonID}
}

func (e *Engine) archiveRow(row models.CycleRecord, now time.Time) {
	if e.archive == nil {
		return
	}
	row.ID = newEventID()
	row.CreatedAt = now
	e.archive.Append(row)
}

func clearClaim(rec *models.AssignmentRecord) {
	rec.ClaimedAt = time.Time{}
	rec.ClaimedBy = ""
	rec.ClaimantIDs = nil
}

func clearCycleMarkers(rec *models.AssignmentRecord) {
	rec.DueWindowFiredAt = time.Time{}
	rec.ReminderSentAt = time.Time{}
	rec.OverdueNotifiedAt = time.Time{}
	rec.PendingResetAt = time.Time{}
}

// resetRecord starts a fresh cycle: claim state, signal markers and any
// deferred-reset stamp all clear.
func resetRecord(rec *models.AssignmentRecord, nextDue, now time.Time) {
	clearClaim(rec)
	resetRecordKeepClaim(rec, nextDue, now)
}

func resetRecordKeepClaim(rec *models.AssignmentRecord, nextDue, now time.Time) {
	rec.DueAt = nextDue
	rec.CycleStartedAt = now
	clearCycleMarkers(rec)
}

// requireRecord resolves the assignment record a person-addressed command
// acts on: the group record for shared chores, the person's own otherwise.
func (e *Engine) requireRecord(c *models.Chore, personID string) (*models.AssignmentRecord, error) {
	key := recordKey(c.ID, personID)
	if c.IsShared() {
		key = recordKey(c.ID, "")
	}
	rec, ok := e.st.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: no assignment record for %s/%s", ErrChoreNotFound, c.ID, personID)
	}
	return rec, nil
}
