// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

// snapshotKey is the single key the full state is written under. History
// lives in the DuckDB archive; the snapshot only needs the latest state.
var snapshotKey = []byte("choreus/snapshot/v1")

const gcInterval = 10 * time.Minute

// BadgerStore implements Store over BadgerDB with a debounced flusher: save
// requests within the debounce window collapse into a single physical write,
// and failed writes are retried without ever blocking the caller.
type BadgerStore struct {
	db  *badger.DB
	log zerolog.Logger

	debounce      time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	pending *models.Snapshot

	notify chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

// Options configures a BadgerStore.
type Options struct {
	Path          string
	Debounce      time.Duration
	RetryInterval time.Duration
}

// NewBadgerStore opens (or creates) the snapshot database and starts the
// flusher goroutine.
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	log := logging.Component("snapshot")

	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithLogger(&badgerLogger{log: logging.Component("badger")}).
		WithCompactL0OnClose(true)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store at %s: %w", opts.Path, err)
	}

	s := &BadgerStore{
		db:            db,
		log:           log,
		debounce:      opts.Debounce,
		retryInterval: opts.RetryInterval,
		notify:        make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go s.run()

	return s, nil
}

// Load returns the most recent snapshot, or ErrNoSnapshot on first boot.
func (s *BadgerStore) Load(_ context.Context) (*models.Snapshot, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap := &models.Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.SchemaVersion != models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d is not supported (want %d)",
			snap.SchemaVersion, models.SnapshotSchemaVersion)
	}
	return snap, nil
}

// RequestSave schedules a save of snap. Never blocks; within a debounce
// window only the newest snapshot survives.
func (s *BadgerStore) RequestSave(snap *models.Snapshot) {
	s.mu.Lock()
	if s.pending != nil {
		metrics.SnapshotCoalesced.Inc()
	}
	s.pending = snap
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// run is the flusher loop: debounce, take the newest pending snapshot,
// write, retry on failure.
func (s *BadgerStore) run() {
	defer close(s.doneCh)

	gc := time.NewTicker(gcInterval)
	defer gc.Stop()

	for {
		select {
		case <-s.stopCh:
			return

		case <-gc.C:
			// One GC pass per tick; ErrNoRewrite is the idle case.
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				s.log.Debug().Err(err).Msg("value log GC pass failed")
			}

		case <-s.notify:
			timer := time.NewTimer(s.debounce)
			select {
			case <-s.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}

			snap := s.takePending()
			if snap == nil {
				continue
			}
			if err := s.write(snap); err != nil {
				s.log.Error().Err(err).Msg("snapshot save failed, retrying")
				metrics.SnapshotSaveFailures.Inc()
				s.requeue(snap)

				retry := time.NewTimer(s.retryInterval)
				select {
				case <-s.stopCh:
					retry.Stop()
					return
				case <-retry.C:
				}
				s.kick()
			}
		}
	}
}

func (s *BadgerStore) takePending() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.pending
	s.pending = nil
	return snap
}

// requeue restores a failed snapshot unless a newer one arrived meanwhile.
func (s *BadgerStore) requeue(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = snap
	}
}

func (s *BadgerStore) kick() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *BadgerStore) write(snap *models.Snapshot) error {
	start := time.Now()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, raw)
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	metrics.SnapshotSaves.Inc()
	metrics.SnapshotSaveDuration.Observe(time.Since(start).Seconds())
	s.log.Debug().
		Int("bytes", len(raw)).
		Int("records", len(snap.Records)).
		Dur("elapsed", time.Since(start)).
		Msg("snapshot saved")
	return nil
}

// Flush writes any pending snapshot synchronously. Used on shutdown after
// the engine has stopped mutating state.
func (s *BadgerStore) Flush(_ context.Context) error {
	snap := s.takePending()
	if snap == nil {
		return nil
	}
	return s.write(snap)
}

// Close stops the flusher, writes any pending snapshot and closes the
// database.
func (s *BadgerStore) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh

	if err := s.Flush(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("final snapshot flush failed")
	}
	return s.db.Close()
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	log zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	// Badger is chatty at info level; keep it at debug.
	l.log.Debug().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
