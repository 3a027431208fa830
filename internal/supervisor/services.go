// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/choreus/internal/logging"
)

// Manager is the lifecycle shape shared by the engine, sweeper, rollover
// scheduler, history appender, notification dispatcher, event forwarder and
// websocket relay.
type Manager interface {
	Start(ctx context.Context) error
	Stop() error
}

// ManagerService adapts a Start/Stop manager to suture.Service: Start, block
// until the context is canceled, Stop.
type ManagerService struct {
	name    string
	manager Manager
}

// NewManagerService wraps a manager. The name identifies it in supervisor
// logs.
func NewManagerService(name string, manager Manager) *ManagerService {
	return &ManagerService{name: name, manager: manager}
}

// Serve implements suture.Service.
func (s *ManagerService) Serve(ctx context.Context) error {
	logging.Info().Str("service", s.name).Msg("starting service")

	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("error stopping service")
	}
	logging.Info().Str("service", s.name).Msg("service stopped")
	return ctx.Err()
}

// String implements fmt.Stringer so suture logs name the service.
func (s *ManagerService) String() string {
	return s.name
}

// Runner is the blocking-loop shape used by the websocket hub.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService adapts a blocking run loop to suture.Service.
type RunnerService struct {
	name   string
	runner Runner
}

// NewRunnerService wraps a run loop.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{name: name, runner: runner}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	logging.Info().Str("service", s.name).Msg("starting service")
	err := s.runner.RunWithContext(ctx)
	logging.Info().Str("service", s.name).Msg("service stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *RunnerService) String() string {
	return s.name
}

// HTTPServer matches *http.Server's lifecycle methods.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService wraps an HTTP server as a supervised service,
// translating the blocking ListenAndServe pattern into a context-aware one.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService creates the wrapper. shutdownTimeout bounds graceful
// shutdown; it defaults to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service. http.ErrServerClosed is expected on
// shutdown and not treated as a failure.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The original context is canceled; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer.
func (h *HTTPServerService) String() string {
	return "http-server"
}
