// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package metrics exposes Prometheus instrumentation for:
//   - engine command throughput and transition outcomes
//   - sweep and rollover passes
//   - event bus publishing and NATS forwarding
//   - snapshot persistence
//   - history archive batching
//   - notification dispatch
//   - API latency/throughput and WebSocket connections
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine Metrics
	EngineCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_commands_total",
			Help: "Total number of commands processed by the chore engine",
		},
		[]string{"command", "result"}, // result: "ok", "not_found", "illegal_transition", "error"
	)

	EngineCommandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_command_duration_seconds",
			Help:    "Time a command spends executing inside the engine actor",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	EngineCommandQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_command_queue_depth",
			Help: "Current number of commands waiting in the engine queue",
		},
	)

	// Sweep Metrics
	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of overdue/reminder sweep passes",
		},
	)

	SweepEarlyExits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_early_exits_total",
			Help: "Sweep ticks skipped because nothing could be due yet",
		},
	)

	SweepSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_signals_total",
			Help: "Signals raised by the sweep",
		},
		[]string{"signal"}, // "due_window", "reminder", "overdue"
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of full sweep passes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Rollover Metrics
	RolloverRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_runs_total",
			Help: "Total number of cycle reset passes",
		},
	)

	RolloverRecordsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_records_reset_total",
			Help: "Assignment records re-armed for a new cycle",
		},
	)

	RolloverDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollover_deferred_total",
			Help: "Claimed records whose reset was deferred to approve/disapprove",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Lifecycle events published to the bus",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Lifecycle events dropped due to a full publish queue",
		},
	)

	NATSMessagesForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_forwarded_total",
			Help: "Events forwarded to NATS JetStream",
		},
	)

	NATSForwardFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_forward_failures_total",
			Help: "Events that failed to forward to NATS",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Snapshot Metrics
	SnapshotSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_saves_total",
			Help: "Physical snapshot writes to BadgerDB",
		},
	)

	SnapshotSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_save_failures_total",
			Help: "Failed snapshot writes (retried by the store)",
		},
	)

	SnapshotCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_requests_coalesced_total",
			Help: "Save requests absorbed by the debounce window",
		},
	)

	SnapshotSaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_save_duration_seconds",
			Help:    "Duration of physical snapshot writes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// History Archive Metrics
	HistoryRowsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_rows_appended_total",
			Help: "Cycle records appended to the history archive",
		},
		[]string{"outcome"}, // "approved", "missed", "skipped"
	)

	HistoryFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "history_flush_duration_seconds",
			Help:    "Duration of history batch flushes",
			Buckets: prometheus.DefBuckets,
		},
	)

	HistoryFlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_flush_errors_total",
			Help: "Failed history batch flushes",
		},
	)

	HistoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "history_query_duration_seconds",
			Help:    "Duration of history archive queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "leaderboard", "chore_history"
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications delivered per notifier",
		},
		[]string{"notifier", "template"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notification delivery failures per notifier",
		},
		[]string{"notifier"},
	)

	NotificationsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_throttled_total",
			Help: "Notifications delayed by the dispatch rate limiter",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEngineCommand records one processed engine command.
func RecordEngineCommand(command, result string, duration time.Duration) {
	EngineCommands.WithLabelValues(command, result).Inc()
	EngineCommandDuration.Observe(duration.Seconds())
}

// RecordSweepSignal records a signal raised by the sweep pass.
func RecordSweepSignal(signal string) {
	SweepSignals.WithLabelValues(signal).Inc()
}

// RecordHistoryQuery records a history archive query.
func RecordHistoryQuery(query string, duration time.Duration) {
	HistoryQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
