package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Hooks wired by the serve and worker commands must run in this order.
func TestShutdownHandler_CommandHookOrder(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 5 * time.Second})

	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	recordErr := func(name string) func() error {
		return func() error {
			order = append(order, name)
			return nil
		}
	}

	h.Add(AuditLoggerShutdownHook(recordErr("audit-logger")))
	h.Add(GraphStoreShutdownHook(record("graph-store")))
	h.Add(TracingShutdownHook(record("tracing")))
	h.Add(TemporalWorkerShutdownHook(func() { order = append(order, "temporal-worker") }))
	h.Add(HTTPServerShutdownHook("http-server", record("http-server")))
	h.RegisterHook("temporal-client", 30, func(ctx context.Context) error {
		order = append(order, "temporal-client")
		return errors.New("already closed")
	})

	h.Start()
	h.Shutdown()
	if !h.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown timed out")
	}

	want := "http-server,temporal-worker,temporal-client,tracing,graph-store,audit-logger"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestShutdownHandler_WaitWithTimeout(t *testing.T) {
	h := NewShutdownHandler(&ShutdownConfig{Timeout: 10 * time.Second})
	release := make(chan struct{})
	h.RegisterHook("slow", 10, func(ctx context.Context) error {
		<-release
		return nil
	})

	h.Start()
	h.Shutdown()
	if h.WaitWithTimeout(50 * time.Millisecond) {
		t.Fatal("expected timeout while hook is blocked")
	}
	close(release)
	if !h.WaitWithTimeout(2 * time.Second) {
		t.Fatal("expected shutdown to finish")
	}
}

func TestShutdownHandler_ShutdownBeforeStart(t *testing.T) {
	h := NewShutdownHandler(nil)
	h.Shutdown()
	select {
	case <-h.ShutdownCh():
		t.Fatal("expected shutdown to be ignored before Start")
	default:
	}
}

func TestNewGracefulServer_HealthOnly(t *testing.T) {
	g := NewGracefulServer("127.0.0.1:0", nil, nil, nil)
	if len(g.Shutdown.hooks) != 2 {
		t.Fatalf("expected readiness and http-server hooks, got %d", len(g.Shutdown.hooks))
	}
	if g.Shutdown.hooks[0].Name != "readiness" {
		t.Fatalf("expected readiness hook first, got %s", g.Shutdown.hooks[0].Name)
	}

	w := httptest.NewRecorder()
	g.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an API handler, got %d", w.Code)
	}
}

func TestGracefulServer_ServeAndShutdown(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	g := NewGracefulServer("127.0.0.1:0", api, &HealthConfig{Version: "test"}, &ShutdownConfig{
		Timeout: 5 * time.Second,
		Logger:  logger,
	})
	g.Health.RegisterCheck("graph-store", GraphStoreHealthChecker("bolt", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := g.Serve(ln); err != nil {
		t.Fatalf("serve: %v", err)
	}
	base := "http://" + ln.Addr().String()

	for path, want := range map[string]int{
		"/ready":  http.StatusOK,
		"/health": http.StatusOK,
	} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}

	resp, err := http.Get(base + "/api/v1/ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("expected pong, got %q", body)
	}

	g.RegisterHook("broken", 50, func(ctx context.Context) error {
		return errors.New("flush failed")
	})

	g.Shutdown.Shutdown()
	if !g.Shutdown.WaitWithTimeout(3 * time.Second) {
		t.Fatal("shutdown timed out")
	}

	if g.Health.ready {
		t.Fatal("expected not ready after shutdown")
	}
	if _, err := http.Get(base + "/live"); err == nil {
		t.Fatal("expected listener to be closed")
	}
	if !strings.Contains(buf.String(), "hook=broken") {
		t.Fatalf("expected failing hook to be logged, got %q", buf.String())
	}
}
