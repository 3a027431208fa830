// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/choreus/internal/models"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.People = []PersonSeed{
		{ID: "alice", Name: "Alice", Role: "admin"},
		{ID: "bob", Name: "Bob", Role: "member"},
	}
	cfg.Chores = []ChoreSeed{
		{
			ID:         "dishes",
			Name:       "Do the dishes",
			Points:     10,
			Rule:       "daily@19:00",
			Discipline: "shared_first",
			Assignees:  []string{"alice", "bob"},
		},
	}
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid seeded config",
			mutate: func(*Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "zero sweep interval",
			mutate:  func(c *Config) { c.Sweep.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "empty snapshot path",
			mutate:  func(c *Config) { c.Snapshot.Path = "" },
			wantErr: true,
		},
		{
			name: "nats enabled without url or embedded server",
			mutate: func(c *Config) {
				c.Events.NATS.Enabled = true
				c.Events.NATS.URL = ""
			},
			wantErr: true,
		},
		{
			name:    "duplicate person id",
			mutate:  func(c *Config) { c.People = append(c.People, PersonSeed{ID: "alice", Name: "A2", Role: "member"}) },
			wantErr: true,
		},
		{
			name:    "person id with slash",
			mutate:  func(c *Config) { c.People[0].ID = "ali/ce" },
			wantErr: true,
		},
		{
			name:    "chore id with slash",
			mutate:  func(c *Config) { c.Chores[0].ID = "dish/es" },
			wantErr: true,
		},
		{
			name:    "unknown role",
			mutate:  func(c *Config) { c.People[0].Role = "owner" },
			wantErr: true,
		},
		{
			name:    "chore with malformed rule",
			mutate:  func(c *Config) { c.Chores[0].Rule = "fortnightly" },
			wantErr: true,
		},
		{
			name:    "chore with unknown discipline",
			mutate:  func(c *Config) { c.Chores[0].Discipline = "together" },
			wantErr: true,
		},
		{
			name:    "chore without assignees",
			mutate:  func(c *Config) { c.Chores[0].Assignees = nil },
			wantErr: true,
		},
		{
			name:    "chore with undeclared assignee",
			mutate:  func(c *Config) { c.Chores[0].Assignees = []string{"mallory"} },
			wantErr: true,
		},
		{
			name:    "chore with bad applicable day",
			mutate:  func(c *Config) { c.Chores[0].ApplicableDays = []string{"caturday"} },
			wantErr: true,
		},
		{
			name:    "chore with bad due_at",
			mutate:  func(c *Config) { c.Chores[0].DueAt = "tomorrow" },
			wantErr: true,
		},
		{
			name: "overrides on shared chore rejected",
			mutate: func(c *Config) {
				c.Chores[0].Overrides = map[string]OverrideSeed{"bob": {Rule: "weekly"}}
			},
			wantErr: true,
		},
		{
			name: "overrides on independent chore accepted",
			mutate: func(c *Config) {
				c.Chores[0].Discipline = "independent"
				c.Chores[0].Overrides = map[string]OverrideSeed{"bob": {Rule: "weekly:saturday"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChoreSeedToChore(t *testing.T) {
	now := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	seed := ChoreSeed{
		ID:             "trash",
		Name:           "Take out the trash",
		Points:         5,
		Rule:           "weekly:monday",
		Discipline:     "independent",
		Assignees:      []string{"bob"},
		ApplicableDays: []string{"Monday", "thursday"},
		DueWindow:      2 * time.Hour,
		ReminderOffset: 30 * time.Minute,
		Overrides: map[string]OverrideSeed{
			"bob": {Rule: "weekly:tuesday", DueAt: "2026-01-06T18:00:00Z"},
		},
	}

	chore := seed.ToChore(now)

	if chore.ID != "trash" || chore.Points != 5 {
		t.Errorf("unexpected chore fields: %+v", chore)
	}
	if chore.Discipline != models.DisciplineIndependent {
		t.Errorf("Discipline = %q", chore.Discipline)
	}
	wantDays := []time.Weekday{time.Monday, time.Thursday}
	if len(chore.ApplicableDays) != len(wantDays) {
		t.Fatalf("ApplicableDays = %v, want %v", chore.ApplicableDays, wantDays)
	}
	for i, d := range wantDays {
		if chore.ApplicableDays[i] != d {
			t.Errorf("ApplicableDays[%d] = %v, want %v", i, chore.ApplicableDays[i], d)
		}
	}
	ov, ok := chore.Overrides["bob"]
	if !ok {
		t.Fatal("missing override for bob")
	}
	if ov.Rule != "weekly:tuesday" {
		t.Errorf("override rule = %q", ov.Rule)
	}
	if ov.DueAt == nil || !ov.DueAt.Equal(time.Date(2026, time.January, 6, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("override due_at = %v", ov.DueAt)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
timezone: UTC
sweep:
  interval: 45s
people:
  - id: alice
    name: Alice
    role: admin
chores:
  - id: dishes
    name: Do the dishes
    points: 10
    rule: daily@19:00
    discipline: shared_first
    assignees: [alice]
`
	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("SWEEP_INTERVAL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("file layer not applied: port = %d", cfg.Server.Port)
	}
	if cfg.Sweep.Interval != 90*time.Second {
		t.Errorf("env layer did not win: sweep.interval = %s", cfg.Sweep.Interval)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("defaults lost: server.timeout = %s", cfg.Server.Timeout)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != "https://a.example" {
		t.Errorf("cors origins = %v", cfg.API.CORSOrigins)
	}
	if len(cfg.Chores) != 1 || cfg.Chores[0].ID != "dishes" {
		t.Errorf("chore seeds = %+v", cfg.Chores)
	}
}

func TestEnvTransformSkipsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want skip", got)
	}
	if got := envTransformFunc("EVENTS_NATS_ENABLED"); got != "events.nats.enabled" {
		t.Errorf("envTransformFunc(EVENTS_NATS_ENABLED) = %q", got)
	}
}
