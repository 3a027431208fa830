// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package models

import "time"

// EventType identifies a chore lifecycle transition published on the bus.
type EventType string

const (
	EventChoreClaimed     EventType = "chore.claimed"
	EventChoreApproved    EventType = "chore.approved"
	EventChoreDisapproved EventType = "chore.disapproved"
	EventChoreOverdue     EventType = "chore.overdue"
	EventChoreDueWindow   EventType = "chore.due_window_opened"
	EventChoreReminder    EventType = "chore.reminder_due"
	EventChoreSkipped     EventType = "chore.skipped"
	EventCycleReset       EventType = "chore.cycle_reset"
)

// ChoreEvent is the envelope published for every lifecycle transition. All
// consumers (notification dispatcher, websocket relay, NATS forwarder)
// receive the same payload.
type ChoreEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ChoreID   string    `json:"chore_id"`
	ChoreName string    `json:"chore_name"`

	// PersonID is the acting or affected person: the claimant for claims,
	// the assignee for reminders and overdue signals. Empty for shared-record
	// signals that address the whole assignee group.
	PersonID string `json:"person_id,omitempty"`

	// ActorID is who triggered the transition when it differs from PersonID
	// (the approving admin, for example).
	ActorID string `json:"actor_id,omitempty"`

	Points int `json:"points,omitempty"`

	DueAt      time.Time `json:"due_at,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
