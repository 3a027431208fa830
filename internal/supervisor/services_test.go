// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeManager struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (m *fakeManager) Start(_ context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started.Store(true)
	return nil
}

func (m *fakeManager) Stop() error {
	m.stopped.Store(true)
	return nil
}

func TestManagerServiceLifecycle(t *testing.T) {
	mgr := &fakeManager{}
	svc := NewManagerService("test-manager", mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !mgr.started.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !mgr.started.Load() {
		t.Fatal("manager was not started")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if !mgr.stopped.Load() {
		t.Error("manager was not stopped")
	}
}

func TestManagerServiceStartFailure(t *testing.T) {
	mgr := &fakeManager{startErr: errors.New("boom")}
	svc := NewManagerService("failing", mgr)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, mgr.startErr) {
		t.Errorf("Serve() error = %v, want wrapped start error", err)
	}
}

type fakeHTTPServer struct {
	listenErr error
	closed    chan struct{}
	shutdown  atomic.Bool
}

func (s *fakeHTTPServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.closed
	return http.ErrServerClosed
}

func (s *fakeHTTPServer) Shutdown(_ context.Context) error {
	s.shutdown.Store(true)
	close(s.closed)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := &fakeHTTPServer{closed: make(chan struct{})}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if !server.shutdown.Load() {
		t.Error("server was not shut down")
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	server := &fakeHTTPServer{listenErr: errors.New("address in use")}
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve() error = nil, want listen failure")
	}
}

func TestTreeDefaults(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
