package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/services/workqueue"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type stubStats workqueue.Progress

func (s stubStats) Stats() workqueue.Progress { return workqueue.Progress(s) }

func testConfig() *config.Config {
	return &config.Config{Version: "test-version", Env: "test"}
}

func TestHealthHandler_Health_WithoutDatabase(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
	if response.Database != "" {
		t.Errorf("expected no database field, got '%s'", response.Database)
	}
}

func TestHealthHandler_Health_DatabaseReachable(t *testing.T) {
	handler := NewHealthHandler(testConfig(), stubPinger{}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Database != "ok" {
		t.Errorf("expected database 'ok', got '%s'", response.Database)
	}
}

func TestHealthHandler_Health_DatabaseDown(t *testing.T) {
	handler := NewHealthHandler(testConfig(), stubPinger{err: errors.New("connection refused")}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "degraded" {
		t.Errorf("expected status 'degraded', got '%s'", response.Status)
	}
	if response.Database != "unreachable" {
		t.Errorf("expected database 'unreachable', got '%s'", response.Database)
	}
}

func TestHealthHandler_Health_ReportsAnalysisStats(t *testing.T) {
	stats := stubStats{Total: 5, Running: 1, Completed: 3, Failed: 1, Retried: 2}
	handler := NewHealthHandler(testConfig(), stubPinger{}, stats, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Analyses == nil {
		t.Fatal("expected analyses block")
	}
	if *response.Analyses != workqueue.Progress(stats) {
		t.Errorf("expected %+v, got %+v", workqueue.Progress(stats), *response.Analyses)
	}
}

func TestHealthHandler_Ping(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Version != "test-version" {
		t.Errorf("expected version 'test-version', got '%s'", response.Version)
	}
	if response.Environment != "test" {
		t.Errorf("expected environment 'test', got '%s'", response.Environment)
	}
	if response.Service != "processx-engine" {
		t.Errorf("expected service 'processx-engine', got '%s'", response.Service)
	}
	if response.GoVersion != runtime.Version() {
		t.Errorf("expected go version '%s', got '%s'", runtime.Version(), response.GoVersion)
	}
	if response.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
}

func TestHealthHandler_RegisterRoutes(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, nil, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	for _, path := range []string{"/health", "/ping"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
