package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_Generates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("Expected request ID in context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("Expected response header %s, got %s", seen, got)
	}
}

func TestRequestID_KeepsClientValue(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "client-123" {
		t.Errorf("Expected client-123 in context, got %s", seen)
	}
	if got := w.Header().Get(RequestIDHeader); got != "client-123" {
		t.Errorf("Expected client-123 in response, got %s", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("Expected empty request ID, got %s", id)
	}
}
