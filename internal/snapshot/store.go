// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package snapshot persists the engine's full state. The engine calls
// RequestSave after every committed mutation; the store owns debounce and
// retry policy so persistence never blocks a state transition.
package snapshot

import (
	"context"
	"errors"

	"github.com/tomtom215/choreus/internal/models"
)

// ErrNoSnapshot signals first boot: no snapshot has ever been saved.
var ErrNoSnapshot = errors.New("no snapshot found")

// Store is the persistence gateway.
type Store interface {
	// Load returns the most recent snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*models.Snapshot, error)

	// RequestSave schedules a save. It never blocks: rapid requests are
	// coalesced and only the newest pending snapshot is written.
	RequestSave(snap *models.Snapshot)

	// Flush writes any pending snapshot synchronously. Used on shutdown.
	Flush(ctx context.Context) error

	// Close flushes and releases the underlying database.
	Close() error
}
