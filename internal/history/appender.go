// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package history

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

// batchWriter is the slice of the store the appender needs.
type batchWriter interface {
	InsertBatch(ctx context.Context, rows []models.CycleRecord) error
}

const appendBuffer = 4096

// Appender batches archived cycle rows and flushes them to the store in the
// background, so the engine's command loop never waits on DuckDB. Rows are
// flushed when the batch fills or the interval elapses, whichever comes
// first, and a final flush runs on Stop.
type Appender struct {
	store         batchWriter
	ch            chan models.CycleRecord
	batchSize     int
	flushInterval time.Duration
	log           zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewAppender creates an appender flushing batches of batchSize rows at
// most flushInterval apart.
func NewAppender(store batchWriter, batchSize int, flushInterval time.Duration) *Appender {
	if batchSize < 1 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Appender{
		store:         store,
		ch:            make(chan models.CycleRecord, appendBuffer),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		log:           logging.Component("history"),
	}
}

// Append queues one row. Never blocks: if the buffer is full the row is
// dropped and logged, which only happens if DuckDB has been failing for a
// long time.
func (a *Appender) Append(row models.CycleRecord) {
	select {
	case a.ch <- row:
	default:
		a.log.Error().
			Str("cycle_id", row.ID).
			Str("chore_id", row.ChoreID).
			Msg("history buffer full, dropping cycle row")
	}
}

// Start launches the flush loop.
func (a *Appender) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.doneCh = make(chan struct{})
	go a.run(runCtx)

	a.log.Info().
		Int("batch_size", a.batchSize).
		Dur("flush_interval", a.flushInterval).
		Msg("history appender started")
	return nil
}

func (a *Appender) run(ctx context.Context) {
	defer close(a.doneCh)

	batch := make([]models.CycleRecord, 0, a.batchSize)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case row := <-a.ch:
			batch = append(batch, row)
			if len(batch) >= a.batchSize {
				batch = a.flush(batch)
			}
		case <-ticker.C:
			batch = a.flush(batch)
		case <-ctx.Done():
			// Drain whatever is queued before the final flush.
			for {
				select {
				case row := <-a.ch:
					batch = append(batch, row)
					continue
				default:
				}
				break
			}
			a.flush(batch)
			return
		}
	}
}

// flush writes the batch and returns an empty one. On failure the rows are
// kept for the next attempt, up to one retry worth of growth.
func (a *Appender) flush(batch []models.CycleRecord) []models.CycleRecord {
	if len(batch) == 0 {
		return batch
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.store.InsertBatch(ctx, batch); err != nil {
		metrics.HistoryFlushErrors.Inc()
		a.log.Error().Err(err).Int("rows", len(batch)).Msg("history flush failed")
		if len(batch) >= 2*a.batchSize {
			a.log.Error().Int("rows", len(batch)).Msg("discarding unflushable history batch")
			return batch[:0]
		}
		return batch
	}

	metrics.HistoryFlushDuration.Observe(time.Since(start).Seconds())
	a.log.Debug().Int("rows", len(batch)).Msg("history batch flushed")
	return batch[:0]
}

// Stop drains and flushes outstanding rows, then stops the loop.
func (a *Appender) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	a.cancel()
	<-a.doneCh
	a.log.Info().Msg("history appender stopped")
	return nil
}
