// Package explorer runs the concept-graph pipeline: validate the query,
// traverse the graph store, aggregate relations and project the view.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/google/uuid"
)

// DefaultMaxDepth bounds traversal depth when no limit is configured.
const DefaultMaxDepth = 6

// Request asks for the concept graph around one root or between two.
type Request struct {
	Roots            []string `json:"roots"`
	Depth            int      `json:"depth"`
	IncludeStopwords bool     `json:"include_stopwords"`
	// IncludePaths returns the decoded paths in store order, shortest first
	// for two-root queries.
	IncludePaths bool `json:"include_paths"`
}

// Response is the outcome of one exploration.
type Response struct {
	RequestID string             `json:"request_id"`
	Strategy  string             `json:"strategy"`
	View      *graph.View        `json:"view"`
	Relations []graph.Relation   `json:"relations"`
	Paths     []graph.PathRecord `json:"paths,omitempty"`
	// Degraded is set when the graph store was unreachable and the view
	// holds only the root words.
	Degraded bool          `json:"degraded,omitempty"`
	Warning  string        `json:"warning,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Service explores concept graphs through a single traversal strategy.
type Service struct {
	traverser graph.Traverser
	projector graph.Projector
	stopwords lexicon.Stopwords
	maxDepth  int
	timeout   time.Duration
	metrics   *observability.Metrics
	audit     *observability.AuditLogger
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProjector overrides the presentation parameters.
func WithProjector(p graph.Projector) Option {
	return func(s *Service) { s.projector = p }
}

// WithStopwords sets the stopword policy applied unless a request opts out.
func WithStopwords(sw lexicon.Stopwords) Option {
	return func(s *Service) { s.stopwords = sw }
}

// WithMaxDepth bounds request depth (<= 0 keeps the default).
func WithMaxDepth(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithTimeout bounds each traversal.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMetrics records traversal outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit records accepted, rejected and failed queries.
func WithAudit(a *observability.AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over traverser.
func New(traverser graph.Traverser, opts ...Option) *Service {
	s := &Service{
		traverser: traverser,
		projector: graph.DefaultProjector(),
		stopwords: lexicon.DefaultStopwords(),
		maxDepth:  DefaultMaxDepth,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy returns the name of the traversal strategy in use.
func (s *Service) Strategy() string {
	return s.traverser.Name()
}

// MaxDepth returns the configured depth bound.
func (s *Service) MaxDepth() int {
	return s.maxDepth
}

// Explore validates req and builds its concept graph. Invalid input fails
// with graph.ErrInvalidQuery before anything reaches the store. A transport
// failure degrades to a roots-only view; a malformed store response fails
// with graph.ErrDecode.
func (s *Service) Explore(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()
	strategy := s.traverser.Name()

	q := graph.NewQuery(req.Depth, req.Roots...)
	if err := q.Validate(s.maxDepth); err != nil {
		s.audit.LogQueryRejected(requestID, req.Roots, req.Depth, err)
		s.metrics.RecordTraversal(strategy, observability.OutcomeInvalid, time.Since(start), 0, 0)
		return nil, err
	}

	ctx, span := observability.StartTraversalSpan(ctx, strategy, string(q.Mode()), q.Depth)
	defer span.End()

	tctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp := &Response{RequestID: requestID, Strategy: strategy}
	paths, err := s.traverser.Traverse(tctx, q)
	switch {
	case err == nil:
	case isTransportFailure(err):
		s.logger.Warn("graph store unavailable", "request_id", requestID, "roots", q.Roots, "strategy", strategy, "error", err)
		observability.RecordError(span, err)
		resp.Degraded = true
		resp.Warning = "graph store unavailable"
		paths = nil
	default:
		s.logger.Error("graph traversal failed", "request_id", requestID, "roots", q.Roots, "strategy", strategy, "error", err)
		observability.RecordError(span, err)
		s.audit.LogQueryFailed(requestID, q.Roots, strategy, err)
		s.metrics.RecordTraversal(strategy, outcomeOf(err), time.Since(start), 0, 0)
		return nil, fmt.Errorf("explore %v: %w", q.Roots, err)
	}

	var filter graph.StopwordFilter
	if !req.IncludeStopwords && s.stopwords.Len() > 0 {
		filter = s.stopwords
	}
	rel := graph.Aggregate(paths, filter)

	resp.View = s.projector.Project(rel, q)
	resp.Relations = rel.Sorted()
	if req.IncludePaths && !resp.Degraded {
		resp.Paths = paths
	}
	resp.Duration = time.Since(start)

	outcome := observability.OutcomeOK
	if resp.Degraded {
		outcome = observability.OutcomeTransportError
	}
	s.metrics.RecordTraversal(strategy, outcome, resp.Duration, len(paths), len(rel))
	observability.RecordTraversalResult(span, len(paths), len(rel), resp.Degraded)
	s.audit.LogQuery(requestID, q.Roots, strategy, resp.Duration, len(resp.View.Nodes), len(resp.View.Edges), resp.Degraded)

	s.logger.Debug("graph explored",
		"request_id", requestID,
		"roots", q.Roots,
		"depth", q.Depth,
		"paths", len(paths),
		"relations", len(rel),
		"duration", resp.Duration,
	)
	return resp, nil
}

func isTransportFailure(err error) bool {
	return errors.Is(err, graph.ErrTransport) || errors.Is(err, context.DeadlineExceeded)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, graph.ErrDecode):
		return observability.OutcomeDecodeError
	case errors.Is(err, graph.ErrInvalidQuery):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}
