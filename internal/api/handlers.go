// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

// Package api implements the HTTP surface: chore and people administration,
// lifecycle transitions, history queries, health probes and the websocket
// event feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/choreus/internal/chore"
	"github.com/tomtom215/choreus/internal/config"
	"github.com/tomtom215/choreus/internal/logging"
	"github.com/tomtom215/choreus/internal/models"
	"github.com/tomtom215/choreus/internal/websocket"
)

// HistoryStore is the slice of the cycle archive the API reads from.
type HistoryStore interface {
	Leaderboard(ctx context.Context, since time.Time) ([]*models.LeaderboardEntry, error)
	ChoreHistory(ctx context.Context, choreID string, limit int) ([]*models.CycleRecord, error)
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	engine  *chore.Engine
	history HistoryStore // nil when the archive is disabled
	hub     *websocket.Hub
	cfg     config.APIConfig

	startTime time.Time
	upgrader  gorillaws.Upgrader
}

// NewHandler creates the handler set. history may be nil when the cycle
// archive is disabled; hub may be nil when websockets are not served.
func NewHandler(engine *chore.Engine, history HistoryStore, hub *websocket.Hub, cfg config.APIConfig) *Handler {
	h := &Handler{
		engine:    engine,
		history:   history,
		hub:       hub,
		cfg:       cfg,
		startTime: time.Now(),
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// --- lifecycle transitions ---

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	var req ClaimRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.engine.Claim(r.Context(), choreID, req.PersonID); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	var req ApproveRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.engine.Approve(r.Context(), choreID, req.PersonID, req.ActorID); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

func (h *Handler) handleDisapprove(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	var req DisapproveRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.engine.Disapprove(r.Context(), choreID, req.PersonID, req.ActorID); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

func (h *Handler) handleSetDueDate(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	var req SetDueDateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.engine.SetDueDate(r.Context(), choreID, req.DueAt); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	if err := h.engine.Skip(r.Context(), choreID); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

// respondChore returns the post-transition view of the chore so clients do
// not need a follow-up GET.
func (h *Handler) respondChore(w http.ResponseWriter, r *http.Request, choreID string) {
	start := time.Now()
	view, err := h.engine.GetChore(r.Context(), choreID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(view, start))
}

// --- chores ---

func (h *Handler) handleListChores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	views, err := h.engine.ListChores(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(views, start))
}

func (h *Handler) handleGetChore(w http.ResponseWriter, r *http.Request) {
	h.respondChore(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) handleCreateChore(w http.ResponseWriter, r *http.Request) {
	var req ChoreRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	c, err := req.ToChore(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	if err := h.engine.CreateChore(r.Context(), c, req.InitialDueAt()); err != nil {
		respondEngineError(w, err)
		return
	}

	start := time.Now()
	view, err := h.engine.GetChore(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, okResponse(view, start))
}

func (h *Handler) handleUpdateChore(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	var req ChoreRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c, err := req.ToChore(choreID)
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}

	if err := h.engine.UpdateChore(r.Context(), c); err != nil {
		respondEngineError(w, err)
		return
	}
	h.respondChore(w, r, choreID)
}

func (h *Handler) handleDeleteChore(w http.ResponseWriter, r *http.Request) {
	choreID := chi.URLParam(r, "id")
	if err := h.engine.DeleteChore(r.Context(), choreID); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(map[string]string{"deleted": choreID}, time.Now()))
}

// --- people ---

func (h *Handler) handleListPeople(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	people, err := h.engine.ListPeople(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(people, start))
}

func (h *Handler) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	person, err := h.engine.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(person, start))
}

func (h *Handler) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	if err := h.engine.CreatePerson(r.Context(), req.ToPerson(id)); err != nil {
		respondEngineError(w, err)
		return
	}

	start := time.Now()
	person, err := h.engine.GetPerson(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, okResponse(person, start))
}

func (h *Handler) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")
	var req PersonRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.engine.UpdatePerson(r.Context(), req.ToPerson(personID)); err != nil {
		respondEngineError(w, err)
		return
	}

	start := time.Now()
	person, err := h.engine.GetPerson(r.Context(), personID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(person, start))
}

func (h *Handler) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")
	if err := h.engine.DeletePerson(r.Context(), personID); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(map[string]string{"deleted": personID}, time.Now()))
}

// --- history ---

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeStorageError,
			"history archive is disabled", nil)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
				"since must be an RFC3339 timestamp", nil)
			return
		}
		since = parsed
	}

	start := time.Now()
	entries, err := h.history.Leaderboard(r.Context(), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStorageError,
			"leaderboard query failed", err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(entries, start))
}

func (h *Handler) handleChoreHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeStorageError,
			"history archive is disabled", nil)
		return
	}

	choreID := chi.URLParam(r, "id")
	limit := getIntParam(r, "limit", h.cfg.DefaultPageSize)
	if limit <= 0 {
		limit = h.cfg.DefaultPageSize
	}
	if h.cfg.MaxPageSize > 0 && limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	start := time.Now()
	rows, err := h.history.ChoreHistory(r.Context(), choreID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStorageError,
			"history query failed", err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(rows, start))
}

// --- health and websocket ---

func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	}, time.Now()))
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	// Ready when the engine answers a command within the probe deadline.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.engine.ListPeople(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeStorageError,
			"engine not ready", err)
		return
	}
	respondJSON(w, http.StatusOK, okResponse(map[string]string{"status": "ready"}, time.Now()))
}

func (h *Handler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeStorageError,
			"websocket feed is disabled", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
