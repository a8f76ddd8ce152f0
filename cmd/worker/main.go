package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/efebarandurmaz/conceptgraph/internal/app"
	"github.com/efebarandurmaz/conceptgraph/internal/config"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/efebarandurmaz/conceptgraph/internal/server"
	temporalmod "github.com/efebarandurmaz/conceptgraph/internal/temporal"

	temporalclient "go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx := context.Background()
	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Traverser: rt.Traverser,
		Scorer:    rt.Scorer,
		Metrics:   rt.Metrics,
		Logger:    logger,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		rt.Close(ctx)
		log.Fatalf("temporal client: %v", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		c.Close()
		rt.Close(ctx)
		log.Fatalf("worker: %v", err)
	}

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	shutdown.Add(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.RegisterHook("temporal-client", 30, func(ctx context.Context) error {
		c.Close()
		return nil
	})
	shutdown.Add(server.TracingShutdownHook(rt.Tracing.Shutdown))
	shutdown.Add(server.GraphStoreShutdownHook(rt.CloseGraph))
	shutdown.Add(server.AuditLoggerShutdownHook(rt.Audit.Close))
	shutdown.Start()

	fmt.Printf("Worker started on task queue: %s (strategy %s)\n", cfg.Temporal.TaskQueue, rt.Strategy())

	shutdown.Wait()
	fmt.Println("Worker stopped")
}
