// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package notify turns chore lifecycle events into outbound notifications.
// The dispatcher subscribes to the event bus, maps each event to a template
// and recipient set, and fans the result out to every enabled notifier.
// Delivery is best effort: a failed send is counted and logged, never
// retried, because the next sweep or transition will produce fresh signals.
package notify

import (
	"context"
	"time"

	"github.com/tomtom215/choreus/internal/models"
)

// Template identifies the kind of notification being sent.
type Template string

const (
	TemplateAwaitingApproval Template = "awaiting_approval"
	TemplateApproved         Template = "approved"
	TemplateDisapproved      Template = "disapproved"
	TemplateDueSoon          Template = "due_soon"
	TemplateReminder         Template = "reminder"
	TemplateOverdue          Template = "overdue"
)

// Notification is a rendered, ready-to-deliver message.
type Notification struct {
	Template Template `json:"template"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`

	// Recipients are display names. Empty means the whole household.
	Recipients []string `json:"recipients,omitempty"`

	ChoreID   string    `json:"chore_id"`
	ChoreName string    `json:"chore_name"`
	PersonID  string    `json:"person_id,omitempty"`
	Points    int       `json:"points,omitempty"`
	DueAt     time.Time `json:"due_at,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, n *Notification) error
}

// Directory resolves person ids to people; the engine implements it.
type Directory interface {
	ListPeople(ctx context.Context) ([]*models.Person, error)
}
