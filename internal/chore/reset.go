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

// Rollover ends every cycle whose due timestamp lies at or before the given
// boundary (a local midnight). Unclaimed ended cycles are archived as missed
// and re-armed on their next occurrence. Claimed ended cycles are NOT reset:
// the boundary is stamped on the record instead, and the next approve or
// disapprove reconciles the deferred reset, so a claim is never silently
// discarded.
//
// Completion-anchored rules have no unconditional schedule, so their records
// stay overdue until someone completes or skips them.
func (e *Engine) Rollover(ctx context.Context, boundary time.Time) error {
	return e.do(ctx, "rollover", func(now time.Time) error {
		e.rollover(boundary, now)
		return nil
	})
}

func (e *Engine) rollover(boundary, now time.Time) {
	metrics.RolloverRuns.Inc()
	mutated := false
	resets := 0

	for _, rec := range e.st.records {
		c, ok := e.st.chores[rec.ChoreID]
		if !ok {
			continue
		}
		if rec.Status == models.StatusApproved || rec.DueAt.IsZero() || rec.DueAt.After(boundary) {
			continue
		}

		if rec.Status == models.StatusClaimed {
			if rec.PendingResetAt.IsZero() {
				rec.PendingResetAt = boundary
				metrics.RolloverDeferred.Inc()
				mutated = true
			}
			continue
		}

		rule := e.effectiveRule(c, rec.PersonID)
		if rule.IsZero() || rule.FromCompletion() {
			continue
		}

		// Partial shared_all claims do not survive the boundary; the cycle
		// as a whole was not completed.
		e.finalizeMissedCycle(c, rec, now)
		resets++
		mutated = true
	}

	if mutated {
		e.nextSignalAt = time.Time{}
		e.persist(now)
	}
	metrics.RolloverRecordsReset.Add(float64(resets))

	e.log.Info().
		Time("boundary", boundary).
		Int("records_reset", resets).
		Msg("rollover pass complete")
}
