// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package api

import (
	"fmt"
	"time"

	"github.com/tomtom215/choreus/internal/config"
	"github.com/tomtom215/choreus/internal/models"
)

// ClaimRequest marks a chore as done by one person.
type ClaimRequest struct {
	PersonID string `json:"person_id" validate:"required,max=64"`
}

// ApproveRequest confirms a claimed chore. PersonID selects the assignment
// record for independent chores and may be omitted for shared ones.
type ApproveRequest struct {
	PersonID string `json:"person_id,omitempty" validate:"max=64"`
	ActorID  string `json:"actor_id" validate:"required,max=64"`
}

// DisapproveRequest rejects a claimed chore.
type DisapproveRequest struct {
	PersonID string `json:"person_id,omitempty" validate:"max=64"`
	ActorID  string `json:"actor_id" validate:"required,max=64"`
}

// SetDueDateRequest moves the current cycle's due timestamp.
type SetDueDateRequest struct {
	DueAt time.Time `json:"due_at" validate:"required"`
}

// PersonRequest creates or updates a household member. ID is taken from the
// URL on updates.
type PersonRequest struct {
	ID   string `json:"id,omitempty" validate:"omitempty,max=64,excludesall=/"`
	Name string `json:"name" validate:"required,max=128"`
	Role string `json:"role" validate:"required,oneof=admin member"`
}

// ToPerson converts the request to a model entity.
func (r *PersonRequest) ToPerson(id string) *models.Person {
	return &models.Person{
		ID:   id,
		Name: r.Name,
		Role: models.Role(r.Role),
	}
}

// OverrideRequest carries a per-assignee deviation for independent chores.
type OverrideRequest struct {
	Rule  string     `json:"rule,omitempty" validate:"omitempty,recurrence_rule"`
	DueAt *time.Time `json:"due_at,omitempty"`
}

// ChoreRequest creates or updates a chore template. Durations use Go
// duration syntax ("2h", "45m"); weekday names are case-insensitive.
type ChoreRequest struct {
	ID             string                     `json:"id,omitempty" validate:"omitempty,max=64,excludesall=/"`
	Name           string                     `json:"name" validate:"required,max=128"`
	Points         int                        `json:"points" validate:"gte=0"`
	Rule           string                     `json:"rule" validate:"recurrence_rule"`
	Discipline     string                     `json:"discipline" validate:"required,oneof=independent shared_first shared_all"`
	AssigneeIDs    []string                   `json:"assignee_ids" validate:"required,min=1,dive,required,max=64"`
	Overrides      map[string]OverrideRequest `json:"overrides,omitempty" validate:"omitempty,dive"`
	ApplicableDays []string                   `json:"applicable_days,omitempty" validate:"omitempty,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	DueWindow      string                     `json:"due_window,omitempty"`
	ReminderOffset string                     `json:"reminder_offset,omitempty"`

	// DueAt sets the initial due timestamp; when omitted the first due is
	// computed from the rule.
	DueAt *time.Time `json:"due_at,omitempty"`
}

// ToChore converts the request to a model entity. Validation must have
// accepted the request first; duration fields are parsed here because
// validator tags cannot express them.
func (r *ChoreRequest) ToChore(id string) (*models.Chore, error) {
	chore := &models.Chore{
		ID:          id,
		Name:        r.Name,
		Points:      r.Points,
		Rule:        r.Rule,
		Discipline:  models.Discipline(r.Discipline),
		AssigneeIDs: append([]string(nil), r.AssigneeIDs...),
	}

	if r.DueWindow != "" {
		d, err := time.ParseDuration(r.DueWindow)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("due_window: invalid duration %q", r.DueWindow)
		}
		chore.DueWindow = d
	}
	if r.ReminderOffset != "" {
		d, err := time.ParseDuration(r.ReminderOffset)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("reminder_offset: invalid duration %q", r.ReminderOffset)
		}
		chore.ReminderOffset = d
	}

	for _, day := range r.ApplicableDays {
		wd, ok := config.ParseWeekday(day)
		if !ok {
			return nil, fmt.Errorf("applicable_days: %q is not a weekday name", day)
		}
		chore.ApplicableDays = append(chore.ApplicableDays, wd)
	}

	if len(r.Overrides) > 0 {
		if chore.Discipline != models.DisciplineIndependent {
			return nil, fmt.Errorf("overrides are only honored for independent chores")
		}
		chore.Overrides = make(map[string]models.PersonOverride, len(r.Overrides))
		for personID, ov := range r.Overrides {
			chore.Overrides[personID] = models.PersonOverride{
				Rule:  ov.Rule,
				DueAt: ov.DueAt,
			}
		}
	}

	return chore, nil
}

// InitialDueAt returns the explicit initial due timestamp, or the zero time
// when the rule should compute it.
func (r *ChoreRequest) InitialDueAt() time.Time {
	if r.DueAt == nil {
		return time.Time{}
	}
	return *r.DueAt
}
