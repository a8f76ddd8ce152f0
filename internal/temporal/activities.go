package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// TraverseInput is the serializable traversal request.
type TraverseInput struct {
	Roots []string
	Depth int
}

// TraverseResult carries the decoded paths in store order.
type TraverseResult struct {
	Paths    []graph.PathRecord
	Strategy string
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Traverser graph.Traverser
	Scorer    *complexity.Scorer
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// TraverseActivity runs one traversal against the configured strategy.
// Transport failures are retryable; decode and validation failures are not.
func TraverseActivity(ctx context.Context, input TraverseInput) (TraverseResult, error) {
	if deps == nil || deps.Traverser == nil {
		return TraverseResult{}, sdktemporal.NewNonRetryableApplicationError("no traverser configured", "Configuration", nil)
	}
	strategy := deps.Traverser.Name()

	start := time.Now()
	q := graph.NewQuery(input.Depth, input.Roots...)
	paths, err := deps.Traverser.Traverse(ctx, q)
	if err != nil {
		deps.logger().Warn("traversal failed", "roots", q.Roots, "strategy", strategy, "error", err)
		deps.Metrics.RecordTraversal(strategy, outcomeOf(err), time.Since(start), 0, 0)
		return TraverseResult{}, classify(err)
	}
	deps.Metrics.RecordTraversal(strategy, observability.OutcomeOK, time.Since(start), len(paths), 0)
	return TraverseResult{Paths: paths, Strategy: strategy}, nil
}

// ScoreActivity computes the complexity index of a text.
func ScoreActivity(ctx context.Context, input ComplexityInput) (*complexity.Result, error) {
	if deps == nil || deps.Scorer == nil {
		return nil, sdktemporal.NewNonRetryableApplicationError("no scorer configured", "Configuration", nil)
	}
	if input.Augment && !deps.Scorer.CanAugment() {
		return nil, sdktemporal.NewNonRetryableApplicationError("augmentation is not configured", "Configuration", nil)
	}
	res, err := deps.Scorer.Score(ctx, input.Text, input.Augment)
	if err != nil {
		return nil, fmt.Errorf("score text: %w", err)
	}
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, graph.ErrInvalidQuery):
		return observability.OutcomeInvalid
	case errors.Is(err, graph.ErrDecode):
		return observability.OutcomeDecodeError
	case errors.Is(err, graph.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeTransportError
	default:
		return observability.OutcomeError
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, graph.ErrInvalidQuery):
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidQuery, err)
	case errors.Is(err, graph.ErrDecode):
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeDecode, err)
	case errors.Is(err, graph.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return sdktemporal.NewApplicationError(err.Error(), ErrTypeTransport, err)
	default:
		return err
	}
}
