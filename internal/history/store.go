// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package history archives ended chore cycles in DuckDB and serves the
// aggregate queries behind the gamification layer: the leaderboard and
// per-chore completion history. Live lifecycle state never lives here; the
// engine owns that.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/choreus/internal/metrics"
	"github.com/tomtom215/choreus/internal/models"
)

// DuckDBStore persists archived cycle rows.
type DuckDBStore struct {
	db *sql.DB
}

// Open opens (or creates) the DuckDB database at path and ensures the
// schema exists. An empty path opens an in-memory database.
func Open(ctx context.Context, path string) (*DuckDBStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// The engine is the only writer and queries are rare.
	db.SetMaxOpenConns(2)

	store := &DuckDBStore{db: db}
	if err := store.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *DuckDBStore) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chore_cycles (
			id TEXT PRIMARY KEY,
			chore_id TEXT NOT NULL,
			chore_name TEXT NOT NULL,
			person_id TEXT NOT NULL,
			cycle_started_at TIMESTAMPTZ,
			due_at TIMESTAMPTZ NOT NULL,
			outcome TEXT NOT NULL,
			points INTEGER NOT NULL,
			claimed_at TIMESTAMPTZ,
			approved_at TIMESTAMPTZ,
			approved_by TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cycles_person ON chore_cycles(person_id);
		CREATE INDEX IF NOT EXISTS idx_cycles_chore ON chore_cycles(chore_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_cycles_created ON chore_cycles(created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create chore_cycles table: %w", err)
	}
	return nil
}

// InsertBatch writes a batch of archived cycles in one transaction.
func (s *DuckDBStore) InsertBatch(ctx context.Context, rows []models.CycleRecord) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chore_cycles (
			id, chore_id, chore_name, person_id,
			cycle_started_at, due_at, outcome, points,
			claimed_at, approved_at, approved_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.ID, row.ChoreID, row.ChoreName, row.PersonID,
			nullableTime(row.CycleStartedAt), row.DueAt, string(row.Outcome), row.Points,
			nullableTime(row.ClaimedAt), nullableTime(row.ApprovedAt), row.ApprovedBy, row.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cycle %s: %w", row.ID, err)
		}
		metrics.HistoryRowsAppended.WithLabelValues(string(row.Outcome)).Inc()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Leaderboard aggregates points and outcome counts per person for cycles
// archived at or after since. A zero since covers all time.
func (s *DuckDBStore) Leaderboard(ctx context.Context, since time.Time) ([]*models.LeaderboardEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordHistoryQuery("leaderboard", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			person_id,
			COALESCE(SUM(CASE WHEN outcome = 'approved' THEN points ELSE 0 END), 0) AS points,
			COUNT(CASE WHEN outcome = 'approved' THEN 1 END) AS approved,
			COUNT(CASE WHEN outcome = 'missed' THEN 1 END) AS missed
		FROM chore_cycles
		WHERE person_id <> '' AND created_at >= ?
		GROUP BY person_id
		ORDER BY points DESC, person_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query failed: %w", err)
	}
	defer rows.Close()

	var out []*models.LeaderboardEntry
	for rows.Next() {
		entry := &models.LeaderboardEntry{}
		if err := rows.Scan(&entry.PersonID, &entry.Points, &entry.Approved, &entry.Missed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return out, nil
}

// ChoreHistory returns the most recent archived cycles of one chore, newest
// first.
func (s *DuckDBStore) ChoreHistory(ctx context.Context, choreID string, limit int) ([]*models.CycleRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordHistoryQuery("chore_history", time.Since(start)) }()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, chore_id, chore_name, person_id,
			cycle_started_at, due_at, outcome, points,
			claimed_at, approved_at, approved_by, created_at
		FROM chore_cycles
		WHERE chore_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, choreID, limit)
	if err != nil {
		return nil, fmt.Errorf("chore history query failed: %w", err)
	}
	defer rows.Close()

	var out []*models.CycleRecord
	for rows.Next() {
		row := &models.CycleRecord{}
		var outcome string
		var cycleStarted, claimed, approved sql.NullTime
		var approvedBy sql.NullString
		err := rows.Scan(
			&row.ID, &row.ChoreID, &row.ChoreName, &row.PersonID,
			&cycleStarted, &row.DueAt, &outcome, &row.Points,
			&claimed, &approved, &approvedBy, &row.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		row.Outcome = models.Outcome(outcome)
		row.CycleStartedAt = cycleStarted.Time
		row.ClaimedAt = claimed.Time
		row.ApprovedAt = approved.Time
		row.ApprovedBy = approvedBy.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycle rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
