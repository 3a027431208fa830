// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/choreus/internal/models"
)

// recordKey builds the map key for an assignment record. Shared chores use a
// single record with an empty person id.
func recordKey(choreID, personID string) string {
	return choreID + "/" + personID
}

// store holds all live state. It is owned exclusively by the engine actor
// goroutine; no method takes a lock and none may be called from outside the
// command loop.
type store struct {
	people  map[string]*models.Person
	chores  map[string]*models.Chore
	records map[string]*models.AssignmentRecord
}

func newStore() *store {
	return &store{
		people:  make(map[string]*models.Person),
		chores:  make(map[string]*models.Chore),
		records: make(map[string]*models.AssignmentRecord),
	}
}

// loadSnapshot replaces all state with the snapshot contents.
func (s *store) loadSnapshot(snap *models.Snapshot) {
	s.people = make(map[string]*models.Person, len(snap.People))
	for _, p := range snap.People {
		cp := *p
		s.people[p.ID] = &cp
	}
	s.chores = make(map[string]*models.Chore, len(snap.Chores))
	for _, c := range snap.Chores {
		s.chores[c.ID] = cloneChore(c)
	}
	s.records = make(map[string]*models.AssignmentRecord, len(snap.Records))
	for _, r := range snap.Records {
		s.records[recordKey(r.ChoreID, r.PersonID)] = r.Clone()
	}
}

// snapshot deep-copies all state into a persistable snapshot. Slices are
// sorted so successive snapshots of the same state are byte-identical.
func (s *store) snapshot(now time.Time) *models.Snapshot {
	snap := &models.Snapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		SavedAt:       now,
		People:        make([]*models.Person, 0, len(s.people)),
		Chores:        make([]*models.Chore, 0, len(s.chores)),
		Records:       make([]*models.AssignmentRecord, 0, len(s.records)),
	}
	for _, p := range s.people {
		cp := *p
		snap.People = append(snap.People, &cp)
	}
	for _, c := range s.chores {
		snap.Chores = append(snap.Chores, cloneChore(c))
	}
	for _, r := range s.records {
		snap.Records = append(snap.Records, r.Clone())
	}
	sort.Slice(snap.People, func(i, j int) bool { return snap.People[i].ID < snap.People[j].ID })
	sort.Slice(snap.Chores, func(i, j int) bool { return snap.Chores[i].ID < snap.Chores[j].ID })
	sort.Slice(snap.Records, func(i, j int) bool {
		a, b := snap.Records[i], snap.Records[j]
		if a.ChoreID != b.ChoreID {
			return a.ChoreID < b.ChoreID
		}
		return a.PersonID < b.PersonID
	})
	return snap
}

// choreRecords returns the live records belonging to one chore, sorted by
// person id for stable iteration.
func (s *store) choreRecords(choreID string) []*models.AssignmentRecord {
	prefix := choreID + "/"
	var out []*models.AssignmentRecord
	for key, rec := range s.records {
		if strings.HasPrefix(key, prefix) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out
}

// dropChoreRecords removes all records belonging to a chore.
func (s *store) dropChoreRecords(choreID string) {
	prefix := choreID + "/"
	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			delete(s.records, key)
		}
	}
}

func cloneChore(c *models.Chore) *models.Chore {
	cp := *c
	if c.AssigneeIDs != nil {
		cp.AssigneeIDs = append([]string(nil), c.AssigneeIDs...)
	}
	if c.ApplicableDays != nil {
		cp.ApplicableDays = append([]time.Weekday(nil), c.ApplicableDays...)
	}
	if c.Overrides != nil {
		cp.Overrides = make(map[string]models.PersonOverride, len(c.Overrides))
		for id, ov := range c.Overrides {
			cp.Overrides[id] = ov
		}
	}
	return &cp
}
