// Choreus - Household Chore Scheduling and Gamification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/choreus

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/choreus/internal/chore"
	"github.com/tomtom215/choreus/internal/config"
	"github.com/tomtom215/choreus/internal/models"
)

type choreViewPayload struct {
	Chore struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"chore"`
	Records []struct {
		PersonID string    `json:"person_id"`
		Status   string    `json:"status"`
		DueAt    time.Time `json:"due_at"`
	} `json:"records"`
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	engine := chore.NewEngine(chore.Options{Location: time.UTC})
	engine.Bootstrap(nil, chore.Seed{
		People: []*models.Person{
			{ID: "alice", Name: "Alice", Role: models.RoleAdmin},
			{ID: "bob", Name: "Bob", Role: models.RoleMember},
		},
		Chores: []chore.SeedChore{
			{
				Chore: &models.Chore{
					ID:          "dishes",
					Name:        "Do the dishes",
					Points:      10,
					Rule:        "daily@09:00",
					Discipline:  models.DisciplineIndependent,
					AssigneeIDs: []string{"bob"},
				},
				DueAt: time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
			},
		},
	})
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Stop() })

	handler := NewHandler(engine, nil, nil, config.APIConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
	})
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, env
}

func decodeChoreView(t *testing.T, env envelope) choreViewPayload {
	t.Helper()
	var view choreViewPayload
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode chore view: %v", err)
	}
	return view
}

func TestClaimAndApproveFlow(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores/dishes/claim",
		map[string]string{"person_id": "bob"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	view := decodeChoreView(t, env)
	if len(view.Records) != 1 || view.Records[0].Status != "claimed" {
		t.Fatalf("after claim records = %+v", view.Records)
	}

	resp, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/chores/dishes/approve",
		map[string]string{"person_id": "bob", "actor_id": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	view = decodeChoreView(t, env)
	if len(view.Records) != 1 {
		t.Fatalf("after approve records = %+v", view.Records)
	}
	rec := view.Records[0]
	if rec.Status != "pending" {
		t.Errorf("after approve status = %s, want pending", rec.Status)
	}
	if !rec.DueAt.After(time.Now()) {
		t.Errorf("after approve due = %s, want future", rec.DueAt)
	}
}

func TestClaimRequiresPersonID(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores/dishes/claim",
		map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeValidation {
		t.Errorf("error = %+v, want %s", env.Error, models.ErrCodeValidation)
	}
}

func TestClaimUnknownChore(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores/nope/claim",
		map[string]string{"person_id": "bob"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", env.Error, models.ErrCodeNotFound)
	}
}

func TestApproveWithoutClaimConflicts(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores/dishes/approve",
		map[string]string{"person_id": "bob", "actor_id": "alice"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeIllegalTransition {
		t.Errorf("error = %+v, want %s", env.Error, models.ErrCodeIllegalTransition)
	}
}

func TestCreatePersonAndChore(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/people",
		map[string]string{"id": "carol", "name": "Carol", "role": "member"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create person status = %d, error = %+v", resp.StatusCode, env.Error)
	}

	resp, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/chores",
		map[string]interface{}{
			"id":           "laundry",
			"name":         "Do the laundry",
			"points":       15,
			"rule":         "weekly:saturday",
			"discipline":   "independent",
			"assignee_ids": []string{"carol"},
		})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chore status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	view := decodeChoreView(t, env)
	if len(view.Records) != 1 {
		t.Fatalf("records = %+v, want one for carol", view.Records)
	}
	if view.Records[0].DueAt.IsZero() {
		t.Error("initial due was not computed from the rule")
	}
	if view.Records[0].DueAt.Weekday() != time.Saturday {
		t.Errorf("due weekday = %s, want Saturday", view.Records[0].DueAt.Weekday())
	}
}

func TestCreateChoreRejectsInvalidRule(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores",
		map[string]interface{}{
			"id":           "bad",
			"name":         "Bad rule",
			"rule":         "fortnightly:whenever",
			"discipline":   "independent",
			"assignee_ids": []string{"bob"},
		})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeValidation {
		t.Errorf("error = %+v, want %s", env.Error, models.ErrCodeValidation)
	}
}

func TestCreateChoreRejectsSlashInID(t *testing.T) {
	server := newTestServer(t)

	// Record keys join chore and person ids with "/", so ids may not
	// contain the separator.
	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores",
		map[string]interface{}{
			"id":           "dish/es",
			"name":         "Sneaky id",
			"rule":         "daily@09:00",
			"discipline":   "independent",
			"assignee_ids": []string{"bob"},
		})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeValidation {
		t.Errorf("error = %+v, want %s", env.Error, models.ErrCodeValidation)
	}
}

func TestDuplicateChoreConflicts(t *testing.T) {
	server := newTestServer(t)

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/chores",
		map[string]interface{}{
			"id":           "dishes",
			"name":         "Do the dishes again",
			"rule":         "daily",
			"discipline":   "independent",
			"assignee_ids": []string{"bob"},
		})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409, error = %+v", resp.StatusCode, env.Error)
	}
}

func TestLeaderboardUnavailableWithoutArchive(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/history/leaderboard")
	if err != nil {
		t.Fatalf("GET leaderboard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealthProbes(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/healthz/live", "/healthz/ready"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestSetDueDateMovesCycle(t *testing.T) {
	server := newTestServer(t)

	target := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	resp, env := doJSON(t, http.MethodPut, server.URL+"/api/v1/chores/dishes/due-date",
		map[string]interface{}{"due_at": target})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	view := decodeChoreView(t, env)
	if len(view.Records) != 1 || !view.Records[0].DueAt.Equal(target) {
		t.Errorf("records = %+v, want due %s", view.Records, target)
	}
}

func TestDeletePersonRemovesAssignments(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/people/bob", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE person: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	getResp, env := doJSON(t, http.MethodGet, server.URL+"/api/v1/chores/dishes", nil)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get chore status = %d", getResp.StatusCode)
	}
	view := decodeChoreView(t, env)
	if len(view.Records) != 0 {
		t.Errorf("records = %+v, want none after assignee deletion", view.Records)
	}
}
