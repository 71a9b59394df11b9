package app

import (
	"errors"
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	_, handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("health: got %d, want 200", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["ok"] != true {
		t.Fatalf("expected ok true, got %v", payload)
	}
}

func TestReadyEndpointChecksDatabase(t *testing.T) {
	fs, handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/api/ready", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("ready: got %d, want 200", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["status"] != "ready" {
		t.Fatalf("expected ready status, got %v", payload)
	}

	fs.pingErr = errors.New("connection refused")
	recorder = doJSON(t, handler, http.MethodGet, "/api/ready", "", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with db down: got %d, want 503", recorder.Code)
	}
	payload = decodeResponse(t, recorder)
	if payload["status"] != "not_ready" {
		t.Fatalf("expected not_ready status, got %v", payload)
	}
}

func TestCORSAndRequestIDHeaders(t *testing.T) {
	_, handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected CORS origin %q", got)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}

	recorder = doJSON(t, handler, http.MethodOptions, "/api/persons", "", nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d, want 204", recorder.Code)
	}
}
