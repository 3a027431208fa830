// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/choreus/config.yaml",
	"/etc/choreus/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. File and
// environment layers override these.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8480,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Timezone: "UTC",
		Engine: EngineConfig{
			CommandBuffer: 256,
			EventBuffer:   1024,
		},
		Sweep: SweepConfig{
			Interval: 30 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Path:          "/data/choreus/snapshot",
			Debounce:      500 * time.Millisecond,
			RetryInterval: 5 * time.Second,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "/data/choreus/history.duckdb",
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Events: EventsConfig{
			NATS: NATSConfig{
				Enabled:  false,
				URL:      "nats://127.0.0.1:4222",
				Embedded: false,
				StoreDir: "/data/choreus/nats",
				Stream:   "CHORES",
				Subject:  "chores.lifecycle",
			},
		},
		Notify: NotifyConfig{
			Enabled:       false,
			RatePerMinute: 60,
			Webhook: WebhookConfig{
				Enabled: false,
				Timeout: 10 * time.Second,
			},
			Discord: DiscordConfig{
				Enabled: false,
				Timeout: 10 * time.Second,
			},
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SWEEP_INTERVAL -> sweep.interval, EVENTS_NATS_ENABLED -> events.nats.enabled
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as env var strings.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML), nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so arbitrary environment noise never leaks
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"timezone": "timezone",

		// Engine mappings
		"engine_command_buffer": "engine.command_buffer",
		"engine_event_buffer":   "engine.event_buffer",

		// Sweep mappings
		"sweep_interval": "sweep.interval",

		// Snapshot mappings
		"snapshot_path":           "snapshot.path",
		"snapshot_debounce":       "snapshot.debounce",
		"snapshot_retry_interval": "snapshot.retry_interval",

		// History mappings
		"history_enabled":        "history.enabled",
		"history_path":           "history.path",
		"history_batch_size":     "history.batch_size",
		"history_flush_interval": "history.flush_interval",

		// NATS mappings
		"events_nats_enabled":   "events.nats.enabled",
		"events_nats_url":       "events.nats.url",
		"events_nats_embedded":  "events.nats.embedded",
		"events_nats_store_dir": "events.nats.store_dir",
		"events_nats_stream":    "events.nats.stream",
		"events_nats_subject":   "events.nats.subject",

		// Notification mappings
		"notify_enabled":             "notify.enabled",
		"notify_rate_per_minute":     "notify.rate_per_minute",
		"notify_webhook_enabled":     "notify.webhook.enabled",
		"notify_webhook_url":         "notify.webhook.url",
		"notify_webhook_timeout":     "notify.webhook.timeout",
		"notify_discord_enabled":     "notify.discord.enabled",
		"notify_discord_webhook_url": "notify.discord.webhook_url",
		"notify_discord_timeout":     "notify.discord.timeout",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"cors_origins":          "api.cors_origins",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
