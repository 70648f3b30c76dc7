package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandlerGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	NewHealthHandler("websocket", ":5000/chat")(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got '%s'", ct)
	}

	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", status.Status)
	}
	if status.Transport != "websocket" {
		t.Errorf("Expected transport 'websocket', got '%s'", status.Transport)
	}
	if status.Addr != ":5000/chat" {
		t.Errorf("Expected addr ':5000/chat', got '%s'", status.Addr)
	}
}

func TestHealthHandlerHead(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	w := httptest.NewRecorder()

	NewHealthHandler("tcp", ":5000")(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got '%s'", w.Body.String())
	}
}

func TestHealthHandlerRejectsOtherMethods(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/healthz", nil)
		w := httptest.NewRecorder()

		NewHealthHandler("tcp", ":5000")(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status code %d, got %d", method, http.StatusMethodNotAllowed, w.Code)
		}
	}
}
