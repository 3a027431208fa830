// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
)

// maxCatchUpBoundaries bounds how many missed midnights are replayed after
// downtime. A year of boundaries is more than any realistic outage.
const maxCatchUpBoundaries = 366

// RolloverScheduler fires a rollover command at every local midnight. On
// start it replays the midnights that passed while the process was down,
// oldest first, so multi-day outages archive each missed cycle instead of
// silently collapsing them.
type RolloverScheduler struct {
	engine *Engine
	loc    *time.Location
	since  time.Time
	log    zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRolloverScheduler creates a scheduler. since is the last instant the
// engine is known to have been live (the snapshot's save timestamp); zero
// skips catch-up.
func NewRolloverScheduler(engine *Engine, loc *time.Location, since time.Time) *RolloverScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &RolloverScheduler{
		engine: engine,
		loc:    loc,
		since:  since,
		log:    logging.Component("rollover"),
	}
}

// Start replays missed boundaries and begins the midnight timer.
func (r *RolloverScheduler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	go r.run(runCtx)

	r.log.Info().Str("timezone", r.loc.String()).Msg("rollover scheduler started")
	return nil
}

func (r *RolloverScheduler) run(ctx context.Context) {
	defer close(r.doneCh)

	r.catchUp(ctx)

	for {
		now := time.Now().In(r.loc)
		boundary := nextMidnight(now, r.loc)
		timer := time.NewTimer(boundary.Sub(now))

		select {
		case <-timer.C:
			r.fire(ctx, boundary)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// catchUp replays every midnight between the last known-live instant and
// now, oldest first.
func (r *RolloverScheduler) catchUp(ctx context.Context) {
	if r.since.IsZero() {
		return
	}
	now := time.Now()

	replayed := 0
	for b := nextMidnight(r.since, r.loc); !b.After(now); b = nextMidnight(b, r.loc) {
		if ctx.Err() != nil {
			return
		}
		r.fire(ctx, b)
		replayed++
		if replayed >= maxCatchUpBoundaries {
			r.log.Warn().Int("replayed", replayed).Msg("rollover catch-up truncated")
			break
		}
	}
	if replayed > 0 {
		r.log.Info().Int("boundaries", replayed).Msg("rollover catch-up complete")
	}
}

func (r *RolloverScheduler) fire(ctx context.Context, boundary time.Time) {
	if err := r.engine.Rollover(ctx, boundary); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, ErrEngineStopped) {
		r.log.Error().Err(err).Time("boundary", boundary).Msg("rollover failed")
	}
}

// Stop ends the midnight timer.
func (r *RolloverScheduler) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	r.cancel()
	<-r.doneCh
	r.log.Info().Msg("rollover scheduler stopped")
	return nil
}

// nextMidnight returns the first midnight in loc strictly after t.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}
