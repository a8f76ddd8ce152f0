// Package app builds the process-wide runtime from configuration: the
// traversal strategy, the explorer and scorer services and their ambient
// collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/config"
	"github.com/efebarandurmaz/conceptgraph/internal/dictionary"
	"github.com/efebarandurmaz/conceptgraph/internal/explorer"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/graph/local"
	"github.com/efebarandurmaz/conceptgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/efebarandurmaz/conceptgraph/internal/secrets"
	"github.com/efebarandurmaz/conceptgraph/internal/summary"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is reported by health endpoints and traces.
const Version = "0.1.0"

// Runtime holds the long-lived services of one process. Everything in it is
// built once and shared read-only.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Audit      *observability.AuditLogger
	Tracing    *observability.TracerProvider
	Stopwords  lexicon.Stopwords
	Normalizer *lexicon.Normalizer
	Lemmatizer lexicon.Lemmatizer
	Projector  graph.Projector
	Traverser  graph.Traverser
	Explorer   *explorer.Service
	Scorer     *complexity.Scorer
	// Dictionary is set when the local strategy is in use.
	Dictionary *dictionary.SQLiteStore

	bolt *neo4j.BoltTraverser
}

// Option adjusts what New builds.
type Option func(*options)

type options struct {
	withoutGraph bool
}

// WithoutGraph skips the traversal strategy and the explorer. Scoring-only
// commands use it so the graph store is never touched.
func WithoutGraph() Option {
	return func(o *options) { o.withoutGraph = true }
}

// New builds a Runtime from cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	lemmatizer, err := lexicon.English()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewMetrics(prometheus.NewRegistry()),
		Lemmatizer: lemmatizer,
		Projector: graph.Projector{
			BaseSize:             cfg.Projection.BaseSize,
			SizeScale:            cfg.Projection.SizeScale,
			OneRootWeightDivisor: cfg.Projection.OneRootWeightDivisor,
		},
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "conceptgraph",
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	rt.Tracing = tp

	audit, err := observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Audit.Enabled,
		OutputPath: cfg.Audit.Output,
	})
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Audit = audit

	rt.Stopwords = lexicon.DefaultStopwords()
	if cfg.Complexity.StopwordsPath != "" {
		sw, err := lexicon.LoadStopwords(cfg.Complexity.StopwordsPath)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("stopwords: %w", err)
		}
		rt.Stopwords = sw
	}
	rt.Normalizer = lexicon.NewNormalizer(rt.Stopwords)

	if !o.withoutGraph {
		if err := rt.buildGraph(ctx); err != nil {
			rt.Close(ctx)
			return nil, err
		}
	}

	scorerOpts := []complexity.Option{
		complexity.WithTablePath(cfg.Complexity.FrequencyTable),
		complexity.WithConcurrency(cfg.Complexity.SummaryConcurrency),
		complexity.WithSummaryTimeout(cfg.Complexity.SummaryTimeout),
		complexity.WithMetrics(rt.Metrics),
		complexity.WithLogger(logger),
	}
	if cfg.Complexity.SummaryEndpoint != "" {
		retry := summary.DefaultRetryConfig()
		retry.MaxRetries = cfg.Complexity.SummaryRetries
		if cfg.Complexity.SummaryTimeout > 0 {
			retry.Timeout = cfg.Complexity.SummaryTimeout
		}
		scorerOpts = append(scorerOpts, complexity.WithSummarizer(summary.NewClient(summary.Config{
			Endpoint:          cfg.Complexity.SummaryEndpoint,
			UserAgent:         cfg.Complexity.UserAgent,
			RequestsPerSecond: cfg.Complexity.SummaryRPS,
			Retry:             retry,
		})))
	}
	rt.Scorer = complexity.NewScorer(rt.Normalizer, rt.Lemmatizer, scorerOpts...)

	logger.Debug("runtime ready",
		"strategy", rt.Strategy(),
		"max_depth", cfg.Graph.MaxDepth,
		"stopwords", rt.Stopwords.Len(),
		"augment", rt.Scorer.CanAugment(),
	)
	return rt, nil
}

func (rt *Runtime) buildGraph(ctx context.Context) error {
	if err := rt.resolveCredentials(ctx); err != nil {
		return err
	}
	if err := rt.buildTraverser(ctx); err != nil {
		return err
	}
	cfg := rt.Config
	rt.Explorer = explorer.New(rt.Traverser,
		explorer.WithProjector(rt.Projector),
		explorer.WithStopwords(rt.Stopwords),
		explorer.WithMaxDepth(cfg.Graph.MaxDepth),
		explorer.WithTimeout(cfg.Graph.Timeout),
		explorer.WithMetrics(rt.Metrics),
		explorer.WithAudit(rt.Audit),
		explorer.WithLogger(rt.Logger),
	)
	return nil
}

// Strategy names the traversal strategy in use, or "none" when the runtime
// was built without one.
func (rt *Runtime) Strategy() string {
	if rt.Traverser == nil {
		return "none"
	}
	return rt.Traverser.Name()
}

// resolveCredentials fills an empty graph password from the secrets
// provider. The config struct is copied so callers keep their own value.
func (rt *Runtime) resolveCredentials(ctx context.Context) error {
	if rt.Config.Graph.Strategy == string(graph.StrategyLocal) || rt.Config.Graph.Password != "" {
		return nil
	}
	mgr, err := secrets.NewManager(&secrets.Config{
		Provider: rt.Config.Secrets.Provider,
		FilePath: rt.Config.Secrets.File,
	})
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	cfg := *rt.Config
	cfg.Graph.Password = mgr.Resolve(ctx, cfg.Graph.Password, secrets.SecretGraphPassword)
	if cfg.Graph.Password == "" {
		rt.Logger.Warn("graph password is empty", "strategy", cfg.Graph.Strategy)
	}
	rt.Config = &cfg
	return nil
}

func (rt *Runtime) buildTraverser(ctx context.Context) error {
	g := rt.Config.Graph
	switch graph.Strategy(g.Strategy) {
	case graph.StrategyHTTP:
		rt.Traverser = neo4j.NewHTTPTraverser(neo4j.HTTPConfig{
			Endpoint:     g.HTTPEndpoint,
			Username:     g.Username,
			Password:     g.Password,
			Timeout:      g.Timeout,
			UseTextIndex: g.UseTextIndex,
		})
	case graph.StrategyBolt:
		b, err := neo4j.NewBolt(neo4j.BoltConfig{
			URI:          g.URI,
			Username:     g.Username,
			Password:     g.Password,
			Database:     g.Database,
			UseTextIndex: g.UseTextIndex,
		})
		if err != nil {
			return fmt.Errorf("bolt traverser: %w", err)
		}
		rt.bolt = b
		rt.Traverser = b
	case graph.StrategyLocal:
		store, err := OpenDictionary(ctx, rt.Config, rt.Lemmatizer, rt.Logger)
		if err != nil {
			return err
		}
		rt.Dictionary = store
		rt.Traverser = local.New(store, lexicon.NewNormalizer(rt.Stopwords),
			local.WithConcurrency(g.LocalConcurrency),
			local.WithMaxWords(g.LocalMaxWords),
			local.WithLogger(rt.Logger),
		)
	default:
		return fmt.Errorf("%w: strategy %q", graph.ErrUnsupported, g.Strategy)
	}
	return nil
}

// OpenDictionary opens the configured dictionary store.
func OpenDictionary(ctx context.Context, cfg *config.Config, lemmatizer lexicon.Lemmatizer, logger *slog.Logger) (*dictionary.SQLiteStore, error) {
	store, err := dictionary.Open(ctx, cfg.Dictionary.Path,
		dictionary.WithLemmatizer(lemmatizer),
		dictionary.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	return store, nil
}

// GraphPing checks graph store connectivity, or returns nil when the
// strategy has no long-lived connection to check.
func (rt *Runtime) GraphPing() func(ctx context.Context) error {
	switch {
	case rt.bolt != nil:
		return rt.bolt.Ping
	case rt.Dictionary != nil:
		return rt.Dictionary.Ping
	default:
		return nil
	}
}

// CloseGraph releases the graph store connection.
func (rt *Runtime) CloseGraph(ctx context.Context) error {
	var errs []error
	if rt.bolt != nil {
		errs = append(errs, rt.bolt.Close(ctx))
		rt.bolt = nil
	}
	if rt.Dictionary != nil {
		errs = append(errs, rt.Dictionary.Close())
		rt.Dictionary = nil
	}
	return errors.Join(errs...)
}

// Close releases every resource held by the runtime.
func (rt *Runtime) Close(ctx context.Context) error {
	errs := []error{rt.CloseGraph(ctx)}
	if rt.Audit != nil {
		errs = append(errs, rt.Audit.Close())
	}
	if rt.Tracing != nil {
		errs = append(errs, rt.Tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
