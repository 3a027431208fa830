// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package main is the entry point for the Choreus server.
//
// Choreus is a self-hosted household chore scheduler: chores recur on
// compact rules ("daily@09:00", "weekly:saturday", "after:2w"), household
// members claim and complete them, admins approve, and every ended cycle is
// archived for points and leaderboards.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file, env vars)
//  2. Snapshot store: BadgerDB, restores the last committed engine state
//  3. History archive: DuckDB cycle archive with a batching appender
//  4. Event bus: in-process Watermill pub/sub for lifecycle events
//  5. NATS (optional): embedded or external JetStream forwarding
//  6. Engine: single-actor chore lifecycle state machine, seeded from config
//  7. Sweeper and rollover scheduler: time-based signals and cycle resets
//  8. Notifications: webhook and Discord dispatch from the event bus
//  9. WebSocket hub and relay: live event feed for dashboards
//  10. HTTP server: REST API, health probes, Prometheus metrics
//
// All long-running components run under a Suture supervision tree; the
// process shuts down gracefully on SIGINT or SIGTERM, flushing a final
// snapshot before exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/choreus/internal/api"
	"github.com/tomtom215/choreus/internal/chore"
	"github.com/tomtom215/choreus/internal/config"
	"github.com/tomtom215/choreus/internal/events"
	"github.com/tomtom215/choreus/internal/history"
	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/models"
	"github.com/tomtom215/choreus/internal/notify"
	"github.com/tomtom215/choreus/internal/snapshot"
	"github.com/tomtom215/choreus/internal/supervisor"
	"github.com/tomtom215/choreus/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Component("main")
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Snapshot store and last committed state.
	snapStore, err := snapshot.NewBadgerStore(snapshot.Options{
		Path:          cfg.Snapshot.Path,
		Debounce:      cfg.Snapshot.Debounce,
		RetryInterval: cfg.Snapshot.RetryInterval,
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if err := snapStore.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing snapshot store")
		}
	}()

	snap, err := snapStore.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		log.Info().Msg("no snapshot found, starting from configuration")
		snap = nil
	} else if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	// History archive.
	var (
		archive      chore.Archiver
		historyStore *history.DuckDBStore
		appender     *history.Appender
		apiHistory   api.HistoryStore
	)
	if cfg.History.Enabled {
		historyStore, err = history.Open(ctx, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history archive: %w", err)
		}
		defer func() {
			if err := historyStore.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing history archive")
			}
		}()
		appender = history.NewAppender(historyStore, cfg.History.BatchSize, cfg.History.FlushInterval)
		archive = appender
		apiHistory = historyStore
	}

	// Lifecycle event bus.
	bus := events.NewBus(cfg.Engine.EventBuffer)
	defer bus.Close()

	// Optional NATS JetStream forwarding.
	var forwarder *events.Forwarder
	if cfg.Events.NATS.Enabled {
		url := cfg.Events.NATS.URL
		if cfg.Events.NATS.Embedded {
			embedded, err := events.NewEmbeddedServer(events.EmbeddedServerConfig{
				StoreDir: cfg.Events.NATS.StoreDir,
			})
			if err != nil {
				return fmt.Errorf("start embedded NATS server: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := embedded.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("error shutting down embedded NATS server")
				}
			}()
			url = embedded.ClientURL()
		}
		forwarder, err = events.NewForwarder(events.ForwarderConfig{
			URL:     url,
			Subject: cfg.Events.NATS.Subject,
		}, bus)
		if err != nil {
			return fmt.Errorf("create NATS forwarder: %w", err)
		}
	}

	// Engine, seeded from configuration on top of the snapshot.
	engine := chore.NewEngine(chore.Options{
		Location:      loc,
		CommandBuffer: cfg.Engine.CommandBuffer,
		EventBuffer:   cfg.Engine.EventBuffer,
		Snapshots:     snapStore,
		Archive:       archive,
		Publisher:     bus,
	})
	engine.Bootstrap(snap, seedFromConfig(cfg))

	var since time.Time
	if snap != nil {
		since = snap.SavedAt
	}
	sweeper := chore.NewSweeper(engine, cfg.Sweep.Interval)
	rollover := chore.NewRolloverScheduler(engine, loc, since)

	// Notifications.
	var dispatcher *notify.Dispatcher
	if cfg.Notify.Enabled {
		var notifiers []notify.Notifier
		if cfg.Notify.Webhook.Enabled {
			notifiers = append(notifiers, notify.NewWebhookNotifier(notify.WebhookConfig{
				WebhookURL: cfg.Notify.Webhook.URL,
				Headers:    cfg.Notify.Webhook.Headers,
				Enabled:    true,
			}))
		}
		if cfg.Notify.Discord.Enabled {
			notifiers = append(notifiers, notify.NewDiscordNotifier(notify.DiscordConfig{
				WebhookURL: cfg.Notify.Discord.WebhookURL,
				Enabled:    true,
			}))
		}
		if len(notifiers) > 0 {
			dispatcher = notify.NewDispatcher(bus, engine, cfg.Notify.RatePerMinute, notifiers...)
		} else {
			log.Warn().Msg("notifications enabled but no notifier is configured")
		}
	}

	// WebSocket feed.
	hub := websocket.NewHub()
	relay := websocket.NewRelay(bus, hub)

	// HTTP API.
	handler := api.NewHandler(engine, apiHistory, hub, cfg.API)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if appender != nil {
		tree.AddDataService(supervisor.NewManagerService("history-appender", appender))
	}
	tree.AddCoreService(supervisor.NewManagerService("engine", engine))
	tree.AddCoreService(supervisor.NewManagerService("sweeper", sweeper))
	tree.AddCoreService(supervisor.NewManagerService("rollover-scheduler", rollover))
	if forwarder != nil {
		tree.AddMessagingService(supervisor.NewManagerService("nats-forwarder", forwarder))
	}
	if dispatcher != nil {
		tree.AddMessagingService(supervisor.NewManagerService("notify-dispatcher", dispatcher))
	}
	tree.AddMessagingService(supervisor.NewRunnerService("websocket-hub", hub))
	tree.AddMessagingService(supervisor.NewManagerService("websocket-relay", relay))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.Timeout))

	log.Info().
		Str("addr", server.Addr).
		Str("timezone", cfg.Timezone).
		Bool("history", cfg.History.Enabled).
		Bool("nats", cfg.Events.NATS.Enabled).
		Bool("notify", cfg.Notify.Enabled).
		Msg("choreus starting")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor tree exited")
	}

	// Final snapshot flush so no committed mutation is lost across restarts.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := snapStore.Flush(flushCtx); err != nil {
		log.Warn().Err(err).Msg("final snapshot flush failed")
	}

	log.Info().Msg("choreus stopped")
	return nil
}

// seedFromConfig converts configured people and chores into engine seeds.
func seedFromConfig(cfg *config.Config) chore.Seed {
	now := time.Now()

	seed := chore.Seed{
		People: make([]*models.Person, 0, len(cfg.People)),
		Chores: make([]chore.SeedChore, 0, len(cfg.Chores)),
	}
	for _, p := range cfg.People {
		seed.People = append(seed.People, p.ToPerson(now))
	}
	for _, ch := range cfg.Chores {
		seed.Chores = append(seed.Chores, chore.SeedChore{
			Chore: ch.ToChore(now),
			DueAt: ch.InitialDueAt(),
		})
	}
	return seed
}
