// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package chore

import "errors"

var (
	// ErrChoreNotFound is returned for commands addressing an unknown chore.
	ErrChoreNotFound = errors.New("chore not found")

	// ErrPersonNotFound is returned for commands addressing an unknown person.
	ErrPersonNotFound = errors.New("person not found")

	// ErrIllegalTransition is returned when an action is not valid from the
	// record's current state (claiming an already-claimed shared chore,
	// approving a terminal record, a non-assignee claiming).
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrNotClaimed is returned when approve/disapprove addresses a record
	// that is not awaiting approval.
	ErrNotClaimed = errors.New("chore is not claimed")

	// ErrAlreadyExists is returned when creating an entity whose id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrEngineStopped is returned for commands submitted after shutdown.
	ErrEngineStopped = errors.New("engine is stopped")
)
