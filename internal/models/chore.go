// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package models

import (
	"time"
)

// Role identifies what a person is allowed to receive, not what they are
// allowed to do: admins get "awaiting approval" notifications. No permission
// checks are performed anywhere in this subsystem.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Person is a household member.
type Person struct {
	ID        string    `json:"id" koanf:"id"`
	Name      string    `json:"name" koanf:"name"`
	Role      Role      `json:"role" koanf:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the person receives admin-directed notifications.
func (p *Person) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Discipline describes how a chore is completed: by one fixed person per
// record, by whichever shared assignee claims first, or by all shared
// assignees together.
type Discipline string

const (
	DisciplineIndependent Discipline = "independent"
	DisciplineSharedFirst Discipline = "shared_first"
	DisciplineSharedAll   Discipline = "shared_all"
)

// Valid reports whether d is a known completion discipline.
func (d Discipline) Valid() bool {
	switch d {
	case DisciplineIndependent, DisciplineSharedFirst, DisciplineSharedAll:
		return true
	}
	return false
}

// PersonOverride carries per-assignee deviations from the chore template.
// Only honored for independent chores, where each assignee has their own
// assignment record.
type PersonOverride struct {
	// Rule replaces the chore's recurrence rule for this assignee when
	// non-empty (compact rule syntax, e.g. "weekly:saturday").
	Rule string `json:"rule,omitempty" koanf:"rule"`

	// DueAt replaces the initial due timestamp for this assignee.
	DueAt *time.Time `json:"due_at,omitempty" koanf:"due_at"`
}

// Chore is the task template. It is created by configuration or the admin
// API and owns zero claim state; the per-cycle lifecycle lives on
// AssignmentRecord.
type Chore struct {
	ID         string     `json:"id" koanf:"id"`
	Name       string     `json:"name" koanf:"name"`
	Points     int        `json:"points" koanf:"points"`
	Rule       string     `json:"rule" koanf:"rule"`
	Discipline Discipline `json:"discipline" koanf:"discipline"`

	// AssigneeIDs lists the people responsible for this chore. Independent
	// chores materialize one assignment record per assignee; shared chores
	// have a single record for the whole group.
	AssigneeIDs []string `json:"assignee_ids" koanf:"assignee_ids"`

	// Overrides maps assignee id to per-person deviations (independent only).
	Overrides map[string]PersonOverride `json:"overrides,omitempty" koanf:"overrides"`

	// ApplicableDays restricts due dates to the listed weekdays. Empty means
	// every day is applicable.
	ApplicableDays []time.Weekday `json:"applicable_days,omitempty" koanf:"applicable_days"`

	// DueWindow is the lead time before DueAt during which the record is
	// flagged "due" rather than plain "pending". Zero disables the window.
	DueWindow time.Duration `json:"due_window,omitempty" koanf:"due_window"`

	// ReminderOffset is the lead time before DueAt at which a reminder
	// signal is raised once per cycle. Zero disables reminders.
	ReminderOffset time.Duration `json:"reminder_offset,omitempty" koanf:"reminder_offset"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsShared reports whether the chore uses a single shared assignment record.
func (c *Chore) IsShared() bool {
	return c.Discipline == DisciplineSharedFirst || c.Discipline == DisciplineSharedAll
}

// HasAssignee reports whether personID is one of the chore's assignees.
func (c *Chore) HasAssignee(personID string) bool {
	for _, id := range c.AssigneeIDs {
		if id == personID {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an assignment record within one cycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDue      Status = "due"
	StatusClaimed  Status = "claimed"
	StatusApproved Status = "approved"
	StatusOverdue  Status = "overdue"
)

// AssignmentRecord is the mutable per-cycle lifecycle state for one chore,
// or one chore x person pair for independent chores. Shared chores use a
// single record with an empty PersonID.
//
// The fired-signal markers (DueWindowFiredAt, ReminderSentAt,
// OverdueNotifiedAt) are monotonic within a cycle: they are set at most once
// per cycle and cleared only by a cycle reset, which keeps the sweep
// idempotent and restart-safe.
type AssignmentRecord struct {
	ChoreID  string `json:"chore_id"`
	PersonID string `json:"person_id,omitempty"`

	Status Status `json:"status"`

	// DueAt is the single authoritative due timestamp for the current cycle.
	DueAt time.Time `json:"due_at"`

	// CycleStartedAt anchors archive rows to the cycle they belong to.
	CycleStartedAt time.Time `json:"cycle_started_at"`

	ClaimedAt time.Time `json:"claimed_at,omitempty"`
	ClaimedBy string    `json:"claimed_by,omitempty"`

	// ClaimantIDs accumulates individual completions for shared_all chores
	// until every assignee has claimed.
	ClaimantIDs []string `json:"claimant_ids,omitempty"`

	LastCompletedAt time.Time `json:"last_completed_at,omitempty"`

	DueWindowFiredAt  time.Time `json:"due_window_fired_at,omitempty"`
	ReminderSentAt    time.Time `json:"reminder_sent_at,omitempty"`
	OverdueNotifiedAt time.Time `json:"overdue_notified_at,omitempty"`

	// PendingResetAt is stamped with the rollover boundary when a reset
	// fires while the record is claimed. The pending claim survives the
	// boundary and is reconciled by the next approve or disapprove.
	PendingResetAt time.Time `json:"pending_reset_at,omitempty"`
}

// HasClaimant reports whether personID has already claimed this record
// (shared_all accumulation).
func (r *AssignmentRecord) HasClaimant(personID string) bool {
	for _, id := range r.ClaimantIDs {
		if id == personID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *AssignmentRecord) Clone() *AssignmentRecord {
	cp := *r
	if r.ClaimantIDs != nil {
		cp.ClaimantIDs = append([]string(nil), r.ClaimantIDs...)
	}
	return &cp
}

// Snapshot is the full persisted state handed to the snapshot store after
// every committed mutation. The store owns debounce and retry policy.
type Snapshot struct {
	SchemaVersion int                 `json:"schema_version"`
	SavedAt       time.Time           `json:"saved_at"`
	People        []*Person           `json:"people"`
	Chores        []*Chore            `json:"chores"`
	Records       []*AssignmentRecord `json:"records"`
}

// SnapshotSchemaVersion is bumped whenever the snapshot layout changes
// incompatibly.
const SnapshotSchemaVersion = 1

// Outcome classifies an archived cycle row.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeMissed   Outcome = "missed"
	OutcomeSkipped  Outcome = "skipped"
)

// CycleRecord is one archived row in the cycle-statistics store: a cycle
// that ended with an approval, that passed its reset boundary unapproved, or
// that was skipped manually.
type CycleRecord struct {
	ID             string    `json:"id"`
	ChoreID        string    `json:"chore_id"`
	ChoreName      string    `json:"chore_name"`
	PersonID       string    `json:"person_id"`
	CycleStartedAt time.Time `json:"cycle_started_at"`
	DueAt          time.Time `json:"due_at"`
	Outcome        Outcome   `json:"outcome"`
	Points         int       `json:"points"`
	ClaimedAt      time.Time `json:"claimed_at,omitempty"`
	ApprovedAt     time.Time `json:"approved_at,omitempty"`
	ApprovedBy     string    `json:"approved_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// LeaderboardEntry aggregates archived cycles per person for the
// gamification layer.
type LeaderboardEntry struct {
	PersonID string `json:"person_id"`
	Points   int    `json:"points"`
	Approved int    `json:"approved"`
	Missed   int    `json:"missed"`
}
