// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package models defines the typed entities shared across Choreus.
//
// Core entities:
//   - Person: a household member (admin or regular member)
//   - Chore: a recurring task template with assignees and a recurrence rule
//   - AssignmentRecord: the mutable per-cycle lifecycle state for one chore
//     (or one chore x person pair for independently completed chores)
//   - Snapshot: the full persisted state handed to the snapshot store
//   - ChoreEvent: a lifecycle event published on the event bus
//   - CycleRecord: an archived row describing one completed or missed cycle
//
// API types:
//   - APIResponse: standardized HTTP response wrapper
//   - APIError: structured error details
//   - Metadata: response metadata (timestamp)
//
// All timestamps are stored timezone-aware; comparisons are done in UTC while
// day-boundary arithmetic happens in the configured household timezone.
package models
