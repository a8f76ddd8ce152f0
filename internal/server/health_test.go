package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func check(status HealthStatus) HealthChecker {
	return func(ctx context.Context) HealthCheck { return HealthCheck{Status: status} }
}

func getHealth(t *testing.T, h http.Handler, path string) (int, HealthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%s: expected application/json, got %q", path, ct)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s: decode: %v", path, err)
	}
	return w.Code, resp
}

// The serve command registers graph-store, frequency-table and dictionary
// checks; a graph store outage only degrades the process.
func TestHealthServer_OverallStatus(t *testing.T) {
	tests := []struct {
		name       string
		graph      HealthStatus
		table      HealthStatus
		wantStatus HealthStatus
		wantCode   int
	}{
		{"all healthy", HealthStatusHealthy, HealthStatusHealthy, HealthStatusHealthy, http.StatusOK},
		{"graph store down", HealthStatusDegraded, HealthStatusHealthy, HealthStatusDegraded, http.StatusOK},
		{"table missing", HealthStatusHealthy, HealthStatusUnhealthy, HealthStatusUnhealthy, http.StatusServiceUnavailable},
		{"both", HealthStatusDegraded, HealthStatusUnhealthy, HealthStatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer(&HealthConfig{Version: "0.1.0"})
			s.RegisterCheck("graph-store", check(tt.graph))
			s.RegisterCheck("frequency-table", check(tt.table))
			s.RegisterCheck("dictionary", check(HealthStatusHealthy))

			code, resp := getHealth(t, s.Handler(), "/health")
			if code != tt.wantCode || resp.Status != tt.wantStatus {
				t.Fatalf("expected %d/%s, got %d/%s", tt.wantCode, tt.wantStatus, code, resp.Status)
			}
			if resp.Version != "0.1.0" {
				t.Fatalf("expected version 0.1.0, got %q", resp.Version)
			}
			var names []string
			for _, c := range resp.Checks {
				names = append(names, c.Name)
			}
			if got := strings.Join(names, ","); got != "dictionary,frequency-table,graph-store" {
				t.Fatalf("expected checks sorted by name, got %s", got)
			}
		})
	}
}

func TestHealthServer_ReadyAndLive(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		live  bool
		path  string
		want  int
	}{
		{"starting", false, true, "/ready", http.StatusServiceUnavailable},
		{"serving", true, true, "/ready", http.StatusOK},
		{"serving alias", true, true, "/readyz", http.StatusOK},
		{"live", false, true, "/live", http.StatusOK},
		{"wedged", true, false, "/livez", http.StatusServiceUnavailable},
		{"health alias", false, true, "/healthz", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHealthServer(nil)
			s.SetReady(tt.ready)
			s.SetLive(tt.live)
			if code, _ := getHealth(t, s.Handler(), tt.path); code != tt.want {
				t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, code)
			}
		})
	}
}

func TestHealthServer_RegisterBesideAPI(t *testing.T) {
	s := NewHealthServer(nil)
	s.SetReady(true)

	mux := http.NewServeMux()
	s.Register(mux)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	if code, _ := getHealth(t, mux, "/readyz"); code != http.StatusOK {
		t.Fatalf("expected health route to win, got %d", code)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/graph", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected API fallthrough, got %d", w.Code)
	}
}

func TestHealthServer_GetOnly(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthServer(nil).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestCheckers(t *testing.T) {
	down := func(ctx context.Context) error { return errors.New("connection refused") }
	up := func(ctx context.Context) error { return nil }

	tests := []struct {
		name    string
		checker HealthChecker
		want    HealthStatus
		message string
	}{
		{"dictionary up", DatabaseHealthChecker(up), HealthStatusHealthy, "OK"},
		{"dictionary down", DatabaseHealthChecker(down), HealthStatusUnhealthy, "connection refused"},
		{"graph store without connection", GraphStoreHealthChecker("http", nil), HealthStatusHealthy, "configured: http"},
		{"graph store up", GraphStoreHealthChecker("bolt", up), HealthStatusHealthy, "OK"},
		{"graph store down", GraphStoreHealthChecker("bolt", down), HealthStatusDegraded, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.checker(context.Background())
			if got.Status != tt.want {
				t.Fatalf("expected %s, got %s (%s)", tt.want, got.Status, got.Message)
			}
			if !strings.Contains(got.Message, tt.message) {
				t.Fatalf("expected message containing %q, got %q", tt.message, got.Message)
			}
		})
	}
}

func TestGraphStoreHealthChecker_ReportsStrategy(t *testing.T) {
	got := GraphStoreHealthChecker("local", nil)(context.Background())
	if got.Details["strategy"] != "local" {
		t.Fatalf("expected strategy detail, got %v", got.Details)
	}
}

func TestFileHealthChecker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frequencies.csv")
	if err := os.WriteFile(path, []byte("word,frequency\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		path string
		want HealthStatus
	}{
		{"present", path, HealthStatusHealthy},
		{"missing", filepath.Join(dir, "missing.csv"), HealthStatusUnhealthy},
		{"directory", dir, HealthStatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileHealthChecker(tt.path)(context.Background()); got.Status != tt.want {
				t.Fatalf("expected %s, got %s: %s", tt.want, got.Status, got.Message)
			}
		})
	}
}
