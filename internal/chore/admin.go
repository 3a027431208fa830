// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/choreus/internal/models"
)

// ChoreView is a read-only projection of one chore and its live records.
// All contained values are deep copies; callers may hold them freely.
type ChoreView struct {
	Chore   *models.Chore              `json:"chore"`
	Records []*models.AssignmentRecord `json:"records"`
}

// ListChores returns all chores with their records.
func (e *Engine) ListChores(ctx context.Context) ([]*ChoreView, error) {
	var out []*ChoreView
	err := e.do(ctx, "list_chores", func(_ time.Time) error {
		out = make([]*ChoreView, 0, len(e.st.chores))
		for id := range e.st.chores {
			out = append(out, e.choreView(id))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Chore.ID < out[j].Chore.ID })
		return nil
	})
	return out, err
}

// GetChore returns one chore with its records.
func (e *Engine) GetChore(ctx context.Context, choreID string) (*ChoreView, error) {
	var out *ChoreView
	err := e.do(ctx, "get_chore", func(_ time.Time) error {
		if _, err := e.requireChore(choreID); err != nil {
			return err
		}
		out = e.choreView(choreID)
		return nil
	})
	return out, err
}

func (e *Engine) choreView(choreID string) *ChoreView {
	view := &ChoreView{Chore: cloneChore(e.st.chores[choreID])}
	for _, rec := range e.st.choreRecords(choreID) {
		view.Records = append(view.Records, rec.Clone())
	}
	return view
}

// ListPeople returns all household members.
func (e *Engine) ListPeople(ctx context.Context) ([]*models.Person, error) {
	var out []*models.Person
	err := e.do(ctx, "list_people", func(_ time.Time) error {
		out = make([]*models.Person, 0, len(e.st.people))
		for _, p := range e.st.people {
			cp := *p
			out = append(out, &cp)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// GetPerson returns one household member.
func (e *Engine) GetPerson(ctx context.Context, personID string) (*models.Person, error) {
	var out *models.Person
	err := e.do(ctx, "get_person", func(_ time.Time) error {
		p, ok := e.st.people[personID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

// CreatePerson adds a household member.
func (e *Engine) CreatePerson(ctx context.Context, p *models.Person) error {
	return e.do(ctx, "create_person", func(now time.Time) error {
		if _, ok := e.st.people[p.ID]; ok {
			return fmt.Errorf("%w: person %s", ErrAlreadyExists, p.ID)
		}
		cp := *p
		cp.CreatedAt = now
		e.st.people[cp.ID] = &cp
		e.persist(now)
		return nil
	})
}

// UpdatePerson replaces a member's mutable fields.
func (e *Engine) UpdatePerson(ctx context.Context, p *models.Person) error {
	return e.do(ctx, "update_person", func(now time.Time) error {
		existing, ok := e.st.people[p.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrPersonNotFound, p.ID)
		}
		cp := *p
		cp.CreatedAt = existing.CreatedAt
		e.st.people[cp.ID] = &cp
		e.persist(now)
		return nil
	})
}

// DeletePerson removes a member, their independent assignment records, and
// their entry in every chore's assignee list. Shared records stay; a
// shared_all record drops the person's accumulated claim.
func (e *Engine) DeletePerson(ctx context.Context, personID string) error {
	return e.do(ctx, "delete_person", func(now time.Time) error {
		if _, ok := e.st.people[personID]; !ok {
			return fmt.Errorf("%w: %s", ErrPersonNotFound, personID)
		}
		delete(e.st.people, personID)

		for _, c := range e.st.chores {
			if !c.HasAssignee(personID) {
				continue
			}
			kept := make([]string, 0, len(c.AssigneeIDs)-1)
			for _, id := range c.AssigneeIDs {
				if id != personID {
					kept = append(kept, id)
				}
			}
			c.AssigneeIDs = kept
			delete(c.Overrides, personID)
			c.UpdatedAt = now
			e.reconcileRecords(c, time.Time{}, now)

			if c.Discipline == models.DisciplineSharedAll {
				if rec, ok := e.st.records[recordKey(c.ID, "")]; ok && rec.HasClaimant(personID) {
					kept := make([]string, 0, len(rec.ClaimantIDs)-1)
					for _, id := range rec.ClaimantIDs {
						if id != personID {
							kept = append(kept, id)
						}
					}
					rec.ClaimantIDs = kept
					if rec.Status != models.StatusClaimed && len(rec.ClaimantIDs) >= len(c.AssigneeIDs) && len(c.AssigneeIDs) > 0 {
						rec.Status = models.StatusClaimed
						rec.ClaimedAt = now
					}
				}
			}
		}

		e.nextSignalAt = time.Time{}
		e.persist(now)
		return nil
	})
}

// CreateChore adds a chore template and materializes its first cycle.
// dueAt, when non-zero, overrides the computed initial due timestamp.
func (e *Engine) CreateChore(ctx context.Context, c *models.Chore, dueAt time.Time) error {
	return e.do(ctx, "create_chore", func(now time.Time) error {
		if _, ok := e.st.chores[c.ID]; ok {
			return fmt.Errorf("%w: chore %s", ErrAlreadyExists, c.ID)
		}
		if err := e.validateAssignees(c); err != nil {
			return err
		}
		cp := cloneChore(c)
		cp.CreatedAt = now
		cp.UpdatedAt = now
		e.st.chores[cp.ID] = cp
		e.reconcileRecords(cp, dueAt, now)
		e.nextSignalAt = time.Time{}
		e.persist(now)
		return nil
	})
}

// UpdateChore replaces a chore template. Records are reconciled against the
// new assignee list and discipline; surviving records keep their live cycle
// state, including due timestamps computed under the old rule. The new rule
// takes effect at the next cycle reset.
func (e *Engine) UpdateChore(ctx context.Context, c *models.Chore) error {
	return e.do(ctx, "update_chore", func(now time.Time) error {
		existing, ok := e.st.chores[c.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrChoreNotFound, c.ID)
		}
		if err := e.validateAssignees(c); err != nil {
			return err
		}
		cp := cloneChore(c)
		cp.CreatedAt = existing.CreatedAt
		cp.UpdatedAt = now
		e.st.chores[cp.ID] = cp
		e.reconcileRecords(cp, time.Time{}, now)
		e.nextSignalAt = time.Time{}
		e.persist(now)
		return nil
	})
}

// DeleteChore removes a chore and all of its records. Archived cycle rows
// are untouched.
func (e *Engine) DeleteChore(ctx context.Context, choreID string) error {
	return e.do(ctx, "delete_chore", func(now time.Time) error {
		if _, err := e.requireChore(choreID); err != nil {
			return err
		}
		delete(e.st.chores, choreID)
		e.st.dropChoreRecords(choreID)
		e.nextSignalAt = time.Time{}
		e.persist(now)
		return nil
	})
}

func (e *Engine) validateAssignees(c *models.Chore) error {
	for _, id := range c.AssigneeIDs {
		if _, ok := e.st.people[id]; !ok {
			return fmt.Errorf("%w: assignee %s", ErrPersonNotFound, id)
		}
	}
	return nil
}
