// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/choreus/internal/models"
)

func newTestStore(t *testing.T, debounce time.Duration) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(Options{
		Path:     t.TempDir(),
		Debounce: debounce,
	})
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func sampleSnapshot(savedAt time.Time) *models.Snapshot {
	due := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		SavedAt:       savedAt,
		People: []*models.Person{
			{ID: "alice", Name: "Alice", Role: models.RoleAdmin},
		},
		Chores: []*models.Chore{
			{ID: "dishes", Name: "Do the dishes", Points: 10, Rule: "daily@19:00",
				Discipline: models.DisciplineSharedFirst, AssigneeIDs: []string{"alice"}},
		},
		Records: []*models.AssignmentRecord{
			{
				ChoreID:          "dishes",
				Status:           models.StatusDue,
				DueAt:            due,
				CycleStartedAt:   due.Add(-24 * time.Hour),
				DueWindowFiredAt: due.Add(-2 * time.Hour),
				ReminderSentAt:   due.Add(-30 * time.Minute),
			},
		},
	}
}

func TestLoadNoSnapshot(t *testing.T) {
	store := newTestStore(t, 10*time.Millisecond)

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() on empty store error = %v, want ErrNoSnapshot", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, 10*time.Millisecond)

	snap := sampleSnapshot(time.Now().UTC().Truncate(time.Second))
	store.RequestSave(snap)
	if err := waitForFlush(store); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(got.People) != 1 || got.People[0].ID != "alice" {
		t.Errorf("people not preserved: %+v", got.People)
	}
	if len(got.Chores) != 1 || got.Chores[0].Rule != "daily@19:00" {
		t.Errorf("chores not preserved: %+v", got.Chores)
	}
	if len(got.Records) != 1 {
		t.Fatalf("records not preserved: %+v", got.Records)
	}
	rec := got.Records[0]
	want := snap.Records[0]
	if !rec.DueAt.Equal(want.DueAt) || rec.Status != want.Status {
		t.Errorf("record lifecycle state not preserved: %+v", rec)
	}
	if !rec.DueWindowFiredAt.Equal(want.DueWindowFiredAt) || !rec.ReminderSentAt.Equal(want.ReminderSentAt) {
		t.Errorf("fired markers not preserved: %+v", rec)
	}
}

func TestRequestSaveCoalesces(t *testing.T) {
	store := newTestStore(t, 50*time.Millisecond)

	// A burst inside one debounce window must result in the last snapshot
	// being the one persisted.
	for i := 0; i < 10; i++ {
		snap := sampleSnapshot(time.Now())
		snap.Records[0].Status = models.StatusPending
		if i == 9 {
			snap.Records[0].Status = models.StatusOverdue
		}
		store.RequestSave(snap)
	}
	if err := waitForFlush(store); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Records[0].Status != models.StatusOverdue {
		t.Errorf("coalescing kept a stale snapshot: status = %q", got.Records[0].Status)
	}
}

func TestFlushWritesPending(t *testing.T) {
	// A long debounce keeps the flusher idle; Flush must still persist.
	store := newTestStore(t, time.Hour)

	store.RequestSave(sampleSnapshot(time.Now()))
	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Errorf("Load() after Flush error = %v", err)
	}
}

// waitForFlush polls until the debounced write has landed.
func waitForFlush(store *BadgerStore) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		idle := store.pending == nil
		store.mu.Unlock()
		if idle {
			if _, err := store.Load(context.Background()); err == nil {
				return nil
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("snapshot was not flushed in time")
}
