// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package config defines the Choreus configuration surface and its layered
// loader (defaults, YAML file, environment variables).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/choreus/internal/models"
	"github.com/tomtom215/choreus/internal/recurrence"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Timezone string         `koanf:"timezone"`
	Engine   EngineConfig   `koanf:"engine"`
	Sweep    SweepConfig    `koanf:"sweep"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	History  HistoryConfig  `koanf:"history"`
	Events   EventsConfig   `koanf:"events"`
	Notify   NotifyConfig   `koanf:"notify"`
	API      APIConfig      `koanf:"api"`

	// People and Chores seed the engine at boot. Seeds are upserted by id:
	// snapshot state survives restarts, but template fields defined here win.
	People []PersonSeed `koanf:"people"`
	Chores []ChoreSeed  `koanf:"chores"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EngineConfig sizes the engine's internal queues.
type EngineConfig struct {
	// CommandBuffer is the capacity of the serialized command queue.
	CommandBuffer int `koanf:"command_buffer"`

	// EventBuffer is the capacity of the lifecycle event publish queue.
	// Events are dropped (logged and counted) when it overflows.
	EventBuffer int `koanf:"event_buffer"`
}

// SweepConfig drives the overdue/reminder sweep timer.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// SnapshotConfig configures the BadgerDB snapshot store.
type SnapshotConfig struct {
	Path          string        `koanf:"path"`
	Debounce      time.Duration `koanf:"debounce"`
	RetryInterval time.Duration `koanf:"retry_interval"`
}

// HistoryConfig configures the DuckDB cycle archive.
type HistoryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// EventsConfig configures event forwarding.
type EventsConfig struct {
	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig configures the optional NATS JetStream forwarder.
type NATSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
	Stream   string `koanf:"stream"`
	Subject  string `koanf:"subject"`
}

// NotifyConfig configures notification dispatch.
type NotifyConfig struct {
	Enabled       bool          `koanf:"enabled"`
	RatePerMinute int           `koanf:"rate_per_minute"`
	Webhook       WebhookConfig `koanf:"webhook"`
	Discord       DiscordConfig `koanf:"discord"`
}

// WebhookConfig configures the generic webhook notifier.
type WebhookConfig struct {
	Enabled bool              `koanf:"enabled"`
	URL     string            `koanf:"url"`
	Headers map[string]string `koanf:"headers"`
	Timeout time.Duration     `koanf:"timeout"`
}

// DiscordConfig configures the Discord webhook notifier.
type DiscordConfig struct {
	Enabled    bool          `koanf:"enabled"`
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// APIConfig configures the HTTP API surface.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// PersonSeed declares a household member in configuration.
type PersonSeed struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
	Role string `koanf:"role"`
}

// ChoreSeed declares a chore template in configuration.
type ChoreSeed struct {
	ID             string                  `koanf:"id"`
	Name           string                  `koanf:"name"`
	Points         int                     `koanf:"points"`
	Rule           string                  `koanf:"rule"`
	Discipline     string                  `koanf:"discipline"`
	Assignees      []string                `koanf:"assignees"`
	ApplicableDays []string                `koanf:"applicable_days"`
	DueWindow      time.Duration           `koanf:"due_window"`
	ReminderOffset time.Duration           `koanf:"reminder_offset"`
	DueAt          string                  `koanf:"due_at"` // RFC3339; initial due timestamp
	Overrides      map[string]OverrideSeed `koanf:"overrides"`
}

// OverrideSeed declares a per-assignee deviation (independent chores only).
type OverrideSeed struct {
	Rule  string `koanf:"rule"`
	DueAt string `koanf:"due_at"` // RFC3339
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday resolves a weekday name (case-insensitive).
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayByName[strings.ToLower(name)]
	return wd, ok
}

// Validate checks the configuration for errors that would otherwise surface
// at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Engine.CommandBuffer < 1 {
		return fmt.Errorf("engine.command_buffer must be at least 1, got %d", c.Engine.CommandBuffer)
	}
	if c.Engine.EventBuffer < 1 {
		return fmt.Errorf("engine.event_buffer must be at least 1, got %d", c.Engine.EventBuffer)
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path is required")
	}
	if c.History.Enabled && c.History.BatchSize < 1 {
		return fmt.Errorf("history.batch_size must be at least 1, got %d", c.History.BatchSize)
	}
	if c.Events.NATS.Enabled && !c.Events.NATS.Embedded && c.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats.url is required when nats is enabled without the embedded server")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size (%d) must be >= api.default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}

	people := make(map[string]bool, len(c.People))
	for i, p := range c.People {
		if p.ID == "" {
			return fmt.Errorf("people[%d]: id is required", i)
		}
		// Assignment record keys join chore and person ids with "/".
		if strings.Contains(p.ID, "/") {
			return fmt.Errorf("people[%d]: id %q must not contain '/'", i, p.ID)
		}
		if people[p.ID] {
			return fmt.Errorf("people[%d]: duplicate id %q", i, p.ID)
		}
		people[p.ID] = true
		switch models.Role(p.Role) {
		case models.RoleAdmin, models.RoleMember:
		default:
			return fmt.Errorf("people[%d] %q: role must be admin or member, got %q", i, p.ID, p.Role)
		}
	}

	chores := make(map[string]bool, len(c.Chores))
	for i, ch := range c.Chores {
		if err := validateChoreSeed(ch, people); err != nil {
			return fmt.Errorf("chores[%d] %q: %w", i, ch.ID, err)
		}
		if chores[ch.ID] {
			return fmt.Errorf("chores[%d]: duplicate id %q", i, ch.ID)
		}
		chores[ch.ID] = true
	}

	return nil
}

func validateChoreSeed(ch ChoreSeed, people map[string]bool) error {
	if ch.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.Contains(ch.ID, "/") {
		return fmt.Errorf("id %q must not contain '/'", ch.ID)
	}
	if ch.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := recurrence.Parse(ch.Rule); err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	if !models.Discipline(ch.Discipline).Valid() {
		return fmt.Errorf("discipline must be independent, shared_first or shared_all, got %q", ch.Discipline)
	}
	if len(ch.Assignees) == 0 {
		return fmt.Errorf("at least one assignee is required")
	}
	for _, id := range ch.Assignees {
		if !people[id] {
			return fmt.Errorf("assignee %q is not a declared person", id)
		}
	}
	for _, day := range ch.ApplicableDays {
		if _, ok := weekdayByName[strings.ToLower(day)]; !ok {
			return fmt.Errorf("applicable day %q is not a weekday name", day)
		}
	}
	if ch.DueAt != "" {
		if _, err := time.Parse(time.RFC3339, ch.DueAt); err != nil {
			return fmt.Errorf("due_at: %w", err)
		}
	}
	if models.Discipline(ch.Discipline) != models.DisciplineIndependent && len(ch.Overrides) > 0 {
		return fmt.Errorf("overrides are only honored for independent chores")
	}
	for id, ov := range ch.Overrides {
		if !people[id] {
			return fmt.Errorf("override for %q: not a declared person", id)
		}
		if ov.Rule != "" {
			if _, err := recurrence.Parse(ov.Rule); err != nil {
				return fmt.Errorf("override for %q: rule: %w", id, err)
			}
		}
		if ov.DueAt != "" {
			if _, err := time.Parse(time.RFC3339, ov.DueAt); err != nil {
				return fmt.Errorf("override for %q: due_at: %w", id, err)
			}
		}
	}
	return nil
}

// Location returns the configured household timezone. Validate guarantees it
// loads; a zero-value Config falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ToPerson converts a seed to the model entity.
func (p PersonSeed) ToPerson(now time.Time) *models.Person {
	return &models.Person{
		ID:        p.ID,
		Name:      p.Name,
		Role:      models.Role(p.Role),
		CreatedAt: now,
	}
}

// ToChore converts a seed to the model entity. Validate must have accepted
// the seed first.
func (ch ChoreSeed) ToChore(now time.Time) *models.Chore {
	chore := &models.Chore{
		ID:             ch.ID,
		Name:           ch.Name,
		Points:         ch.Points,
		Rule:           ch.Rule,
		Discipline:     models.Discipline(ch.Discipline),
		AssigneeIDs:    append([]string(nil), ch.Assignees...),
		DueWindow:      ch.DueWindow,
		ReminderOffset: ch.ReminderOffset,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, day := range ch.ApplicableDays {
		if wd, ok := weekdayByName[strings.ToLower(day)]; ok {
			chore.ApplicableDays = append(chore.ApplicableDays, wd)
		}
	}
	if len(ch.Overrides) > 0 {
		chore.Overrides = make(map[string]models.PersonOverride, len(ch.Overrides))
		for id, ov := range ch.Overrides {
			mo := models.PersonOverride{Rule: ov.Rule}
			if ov.DueAt != "" {
				if t, err := time.Parse(time.RFC3339, ov.DueAt); err == nil {
					mo.DueAt = &t
				}
			}
			chore.Overrides[id] = mo
		}
	}
	return chore
}

// InitialDueAt returns the seed's explicit initial due timestamp, or the
// zero time when unset.
func (ch ChoreSeed) InitialDueAt() time.Time {
	if ch.DueAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ch.DueAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
