package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestActionHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	rec := doJSON(t, handler, http.MethodPost, "/api/actions", createActionRequest{
		Label:      "ThumbsUp",
		PluginName: "exec",
		ActionName: "run",
		Config:     json.RawMessage(`{"command":"true"}`),
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response actionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID == "" {
		t.Error("expected non-empty ID in response")
	}
	if response.Label != "ThumbsUp" {
		t.Errorf("label = %q, want ThumbsUp", response.Label)
	}
	if !response.Enabled {
		t.Error("new actions should be enabled")
	}

	stored, err := s.Actions().GetByLabel("ThumbsUp")
	if err != nil || stored == nil {
		t.Fatalf("action not persisted: %v", err)
	}
	if stored.ID != response.ID {
		t.Errorf("stored ID = %q, want %q", stored.ID, response.ID)
	}
}

func TestActionHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"invalid json", "invalid json", http.StatusBadRequest},
		{"missing label", createActionRequest{PluginName: "exec", ActionName: "run"}, http.StatusBadRequest},
		{"unknown label", createActionRequest{Label: "Wave", PluginName: "exec", ActionName: "run"}, http.StatusBadRequest},
		{"none label", createActionRequest{Label: "None", PluginName: "exec", ActionName: "run"}, http.StatusBadRequest},
		{"missing plugin", createActionRequest{Label: "OK", ActionName: "run"}, http.StatusBadRequest},
		{"missing action", createActionRequest{Label: "OK", PluginName: "exec"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewActionHandler(newTestStore(t), nil)
			rec := doJSON(t, handler, http.MethodPost, "/api/actions", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestActionHandler_Create_Duplicate(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	body := createActionRequest{Label: "OK", PluginName: "exec", ActionName: "run"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/actions", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/actions", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestActionHandler_Create_ConcurrentBind(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	const n = 6
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := `{"label":"ThumbsUp","plugin_name":"exec","action_name":"run"}`
			req := httptest.NewRequest(http.MethodPost, "/api/actions", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for i, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Errorf("request %d: status %d", i, code)
		}
	}
	if created != 1 {
		t.Errorf("%d requests created a binding, want 1", created)
	}

	actions, err := s.Actions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(actions) != 1 {
		t.Errorf("stored %d actions, want 1", len(actions))
	}
}

func TestActionHandler_Create_ChecksPlugins(t *testing.T) {
	pluginDir := t.TempDir()
	dir := filepath.Join(pluginDir, "exec")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"exec","version":"1.0.0","executable":"exec","actions":["run"]}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "exec"), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	mgr := plugin.NewManager(pluginDir)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	tests := []struct {
		name   string
		plugin string
		action string
		status int
	}{
		{"known", "exec", "run", http.StatusCreated},
		{"unknown plugin", "keyboard", "run", http.StatusBadRequest},
		{"unsupported action", "exec", "type", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewActionHandler(newTestStore(t), mgr)
			rec := doJSON(t, handler, http.MethodPost, "/api/actions", createActionRequest{
				Label:      "Shenka",
				PluginName: tt.plugin,
				ActionName: tt.action,
			})
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestActionHandler_ListGetDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	for _, a := range []*store.Action{
		{ID: "a2", Label: "ThumbsUp", PluginName: "exec", ActionName: "run", Enabled: true},
		{ID: "a1", Label: "OK", PluginName: "exec", ActionName: "run", Enabled: true},
	} {
		if err := s.Actions().Create(a); err != nil {
			t.Fatalf("failed to create action: %v", err)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/actions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list listActionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(list.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(list.Actions))
	}
	if list.Actions[0].Label != "OK" {
		t.Errorf("actions should be ordered by label, first = %q", list.Actions[0].Label)
	}
	if string(list.Actions[0].Config) != "{}" {
		t.Errorf("empty config = %s, want {}", list.Actions[0].Config)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/actions/a2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/actions/a2", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/actions/a2", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/actions/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestActionHandler_Update(t *testing.T) {
	s := newTestStore(t)
	handler := NewActionHandler(s, nil)

	for _, a := range []*store.Action{
		{ID: "a1", Label: "OK", PluginName: "exec", ActionName: "run", Enabled: true},
		{ID: "a2", Label: "Shenka", PluginName: "exec", ActionName: "run", Enabled: true},
	} {
		if err := s.Actions().Create(a); err != nil {
			t.Fatalf("failed to create action: %v", err)
		}
	}

	disabled := false
	rec := doJSON(t, handler, http.MethodPut, "/api/actions/a1", updateActionRequest{
		Label:   "ThumbsDown",
		Enabled: &disabled,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := s.Actions().GetByID("a1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Label != "ThumbsDown" || updated.Enabled {
		t.Errorf("updated = %+v", updated)
	}

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"label taken", "/api/actions/a1", updateActionRequest{Label: "Shenka"}, http.StatusConflict},
		{"invalid label", "/api/actions/a1", updateActionRequest{Label: "Fist"}, http.StatusBadRequest},
		{"same label", "/api/actions/a2", updateActionRequest{Label: "Shenka"}, http.StatusOK},
		{"not found", "/api/actions/missing", updateActionRequest{}, http.StatusNotFound},
		{"invalid json", "/api/actions/a1", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPut, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}
