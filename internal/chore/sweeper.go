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

// Sweeper periodically submits sweep commands to the engine. The interval
// only bounds signal latency; correctness lives in the sweep's persisted
// fired markers, so a missed tick never loses a signal.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewSweeper creates a sweeper ticking at the given interval.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		log:      logging.Component("sweeper"),
	}
}

// Start begins the periodic sweep, running one pass immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	go s.run(runCtx)

	s.log.Info().Dur("interval", s.interval).Msg("sweeper started")
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if err := s.engine.Sweep(ctx); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, ErrEngineStopped) {
		s.log.Error().Err(err).Msg("sweep failed")
	}
}

// Stop ends the periodic sweep.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()
	<-s.doneCh
	s.log.Info().Msg("sweeper stopped")
	return nil
}
