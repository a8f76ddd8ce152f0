package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/app"
	"github.com/efebarandurmaz/conceptgraph/internal/config"
	"github.com/efebarandurmaz/conceptgraph/internal/explorer"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"github.com/efebarandurmaz/conceptgraph/internal/metrics"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/efebarandurmaz/conceptgraph/internal/server"
	temporalmod "github.com/efebarandurmaz/conceptgraph/internal/temporal"
	"github.com/google/uuid"
	temporalclient "go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
)

type runOptions struct {
	configPath string
	report     bool
	jsonReport bool
}

// setup loads configuration and installs the process logger.
func setup(opts runOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func finishReport(opts runOptions, m *metrics.RunMetrics, runErr error) {
	var errs []string
	if runErr != nil {
		errs = append(errs, runErr.Error())
	}
	m.Finish(errs)
	switch {
	case opts.jsonReport:
		data, err := m.JSON()
		if err != nil {
			slog.Error("marshal report", "error", err)
			return
		}
		fmt.Fprintln(os.Stderr, string(data))
	case opts.report:
		m.PrintSummary(os.Stderr)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runExplore(ctx context.Context, opts runOptions, command string, roots []string, depth int, includeStopwords, includePaths bool) (err error) {
	m := metrics.New(command)
	defer func() { finishReport(opts, m, err) }()

	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	rt, err := app.New(ctx, cfg, logger)
	m.AddStep("setup", time.Since(start), errCount(err))
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	start = time.Now()
	resp, err := rt.Explorer.Explore(ctx, explorer.Request{
		Roots:            roots,
		Depth:            depth,
		IncludeStopwords: includeStopwords,
		IncludePaths:     includePaths,
	})
	m.AddStep("explore", time.Since(start), errCount(err))
	if err != nil {
		return err
	}
	m.CollectGraph(resp)
	if resp.Degraded {
		fmt.Fprintf(os.Stderr, "Warning: %s; showing root words only\n", resp.Warning)
	}
	return writeJSON(os.Stdout, resp)
}

func runComplexity(ctx context.Context, opts runOptions, args []string, textFile string, augment, augmentSet bool) (err error) {
	m := metrics.New("complexity")
	defer func() { finishReport(opts, m, err) }()

	text, err := readText(args, textFile)
	if err != nil {
		return err
	}

	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	if !augmentSet {
		augment = cfg.Complexity.Augment
	}

	rt, err := app.New(ctx, cfg, logger, app.WithoutGraph())
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	if augment && !rt.Scorer.CanAugment() {
		return errors.New("augmentation requested but complexity.summary_endpoint is empty")
	}

	start := time.Now()
	res, err := rt.Scorer.Score(ctx, text, augment)
	m.AddStep("score", time.Since(start), errCount(err))
	if err != nil {
		return err
	}
	rt.Audit.LogComplexity(uuid.NewString(), res.Tokens, len(res.UnknownTokens), res.DivisionByZero, time.Since(start))
	m.CollectComplexity(res)
	return writeJSON(os.Stdout, res)
}

func readText(args []string, textFile string) (string, error) {
	switch {
	case len(args) == 1 && textFile != "":
		return "", errors.New("pass either TEXT or --file, not both")
	case len(args) == 1:
		return args[0], nil
	case textFile == "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	case textFile != "":
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("read text: %w", err)
		}
		return string(data), nil
	default:
		return "", errors.New("no text given; pass TEXT or --file")
	}
}

func runServe(ctx context.Context, opts runOptions) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	api := server.NewAPI(rt.Explorer,
		server.WithScorer(rt.Scorer),
		server.WithMetrics(rt.Metrics),
		server.WithAugmentDefault(cfg.Complexity.Augment),
		server.WithLogger(logger),
	)
	gs := server.NewGracefulServer(cfg.Server.Addr, api.Handler(),
		&server.HealthConfig{Version: app.Version},
		&server.ShutdownConfig{Timeout: cfg.Server.ShutdownTimeout, Logger: logger},
	)

	gs.Health.RegisterCheck("graph-store", server.GraphStoreHealthChecker(rt.Strategy(), rt.GraphPing()))
	gs.Health.RegisterCheck("frequency-table", server.FileHealthChecker(cfg.Complexity.FrequencyTable))
	if rt.Dictionary != nil {
		gs.Health.RegisterCheck("dictionary", server.DatabaseHealthChecker(rt.Dictionary.Ping))
	}

	gs.Shutdown.Add(server.TracingShutdownHook(rt.Tracing.Shutdown))
	gs.Shutdown.Add(server.GraphStoreShutdownHook(rt.CloseGraph))
	gs.Shutdown.Add(server.AuditLoggerShutdownHook(rt.Audit.Close))

	if err := gs.Start(); err != nil {
		rt.Close(context.Background())
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	logger.Info("serving", "addr", cfg.Server.Addr, "strategy", rt.Strategy())
	gs.Wait()
	logger.Info("server stopped")
	return nil
}

func runEdges(ctx context.Context, opts runOptions, output string) (err error) {
	m := metrics.New("edges")
	defer func() { finishReport(opts, m, err) }()

	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	stopwords, err := lexicon.LoadStopwords(cfg.Complexity.StopwordsPath)
	if err != nil {
		return err
	}
	audit, err := observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.Output,
	})
	if err != nil {
		return err
	}
	defer audit.Close()

	english, err := lexicon.English()
	if err != nil {
		return err
	}
	store, err := app.OpenDictionary(ctx, cfg, english, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	cw := &countingWriter{w: w}

	ctx, span := observability.StartExportSpan(ctx, output)
	defer span.End()

	start := time.Now()
	stats, err := store.ExportEdges(ctx, lexicon.NewNormalizer(stopwords), cw)
	m.AddStep("export", time.Since(start), errCount(err))
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	m.CollectExport(stats, cw.n)
	audit.LogEdgesExport(output, stats.Words, stats.Edges, time.Since(start))
	logger.Info("definition edges exported", "words", stats.Words, "skipped", stats.Skipped, "edges", stats.Edges)
	return nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

func dialTemporal(cfg *config.Config, logger *slog.Logger) (temporalclient.Client, error) {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}

func runWorkflowExplore(ctx context.Context, opts runOptions, roots []string, depth int, includeStopwords bool) (err error) {
	m := metrics.New("workflow explore")
	defer func() { finishReport(opts, m, err) }()

	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	audit, err := observability.NewAuditLogger(&observability.AuditConfig{Enabled: cfg.Audit.Enabled, OutputPath: cfg.Audit.Output})
	if err != nil {
		return err
	}
	defer audit.Close()

	input := temporalmod.ExploreInput{
		Roots:            roots,
		Depth:            depth,
		MaxDepth:         cfg.Graph.MaxDepth,
		IncludeStopwords: includeStopwords,
		Projection: &graph.Projector{
			BaseSize:             cfg.Projection.BaseSize,
			SizeScale:            cfg.Projection.SizeScale,
			OneRootWeightDivisor: cfg.Projection.OneRootWeightDivisor,
		},
	}
	if cfg.Complexity.StopwordsPath != "" {
		sw, err := lexicon.LoadStopwords(cfg.Complexity.StopwordsPath)
		if err != nil {
			return err
		}
		input.Stopwords = sw.Words()
	}

	c, err := dialTemporal(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	start := time.Now()
	id, out, err := temporalmod.RunExplore(ctx, c, cfg.Temporal.TaskQueue, input)
	audit.LogWorkflowStart(id, "ExploreWorkflow", roots)
	audit.LogWorkflowEnd(id, err == nil, time.Since(start), err)
	m.AddStep("workflow", time.Since(start), errCount(err))
	if err != nil {
		return err
	}
	m.CollectGraph(&explorer.Response{
		RequestID: id,
		Strategy:  "workflow",
		View:      out.View,
		Relations: out.Relations,
		Degraded:  out.Degraded,
		Warning:   out.Warning,
	})
	if out.Degraded {
		fmt.Fprintf(os.Stderr, "Warning: %s; showing root words only\n", out.Warning)
	}
	return writeJSON(os.Stdout, out)
}

func runWorkflowComplexity(ctx context.Context, opts runOptions, text string, augment, augmentSet bool) (err error) {
	m := metrics.New("workflow complexity")
	defer func() { finishReport(opts, m, err) }()

	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	if !augmentSet {
		augment = cfg.Complexity.Augment
	}

	c, err := dialTemporal(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	start := time.Now()
	_, res, err := temporalmod.RunComplexity(ctx, c, cfg.Temporal.TaskQueue, temporalmod.ComplexityInput{
		Text:    text,
		Augment: augment,
	})
	m.AddStep("workflow", time.Since(start), errCount(err))
	if err != nil {
		return err
	}
	m.CollectComplexity(res)
	return writeJSON(os.Stdout, res)
}

func errCount(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
