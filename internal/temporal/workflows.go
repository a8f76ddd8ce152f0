package temporal

import (
	"errors"
	"fmt"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const maxRetries = 2

// Application error types raised by activities.
const (
	ErrTypeTransport    = "TransportFailure"
	ErrTypeDecode       = "DecodeFailure"
	ErrTypeInvalidQuery = "InvalidQuery"
)

// ExploreInput holds the workflow parameters. Stopwords and Projection travel
// with the input so replays on any worker aggregate and project identically.
type ExploreInput struct {
	Roots            []string
	Depth            int
	MaxDepth         int
	IncludeStopwords bool
	// Stopwords overrides the built-in list when non-empty.
	Stopwords []string
	// Projection overrides the default presentation parameters when set.
	Projection *graph.Projector
}

// ExploreOutput holds the workflow result.
type ExploreOutput struct {
	View      *graph.View
	Relations []graph.Relation
	Paths     int
	Degraded  bool
	Warning   string
}

// ExploreWorkflow traverses the graph store in an activity, then aggregates
// relations and projects the view in workflow code. A traversal that still
// fails with a transport error after retries degrades to a roots-only view.
func ExploreWorkflow(ctx workflow.Context, input ExploreInput) (*ExploreOutput, error) {
	q := graph.NewQuery(input.Depth, input.Roots...)
	if err := q.Validate(input.MaxDepth); err != nil {
		return nil, sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidQuery, err)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        maxRetries + 1,
			NonRetryableErrorTypes: []string{ErrTypeDecode, ErrTypeInvalidQuery},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	out := &ExploreOutput{}
	var traversal TraverseResult
	err := workflow.ExecuteActivity(ctx, TraverseActivity, TraverseInput{Roots: q.Roots, Depth: q.Depth}).Get(ctx, &traversal)
	switch {
	case err == nil:
	case isTransportFailure(err):
		logger.Warn("graph store unavailable", "roots", q.Roots, "error", err)
		out.Degraded = true
		out.Warning = "graph store unavailable"
	default:
		return nil, fmt.Errorf("traverse: %w", err)
	}

	var filter graph.StopwordFilter
	if !input.IncludeStopwords {
		if len(input.Stopwords) > 0 {
			filter = lexicon.NewStopwords(input.Stopwords...)
		} else {
			filter = lexicon.DefaultStopwords()
		}
	}
	rel := graph.Aggregate(traversal.Paths, filter)

	projector := graph.DefaultProjector()
	if input.Projection != nil {
		projector = *input.Projection
	}
	out.View = projector.Project(rel, q)
	out.Relations = rel.Sorted()
	out.Paths = len(traversal.Paths)
	return out, nil
}

// ComplexityInput holds the scoring parameters.
type ComplexityInput struct {
	Text    string
	Augment bool
}

// ComplexityWorkflow scores a text in a single activity. Summary lookups
// happen inside the activity, so its timeout covers augmentation.
func ComplexityWorkflow(ctx workflow.Context, input ComplexityInput) (*complexity.Result, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: maxRetries + 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var res complexity.Result
	if err := workflow.ExecuteActivity(ctx, ScoreActivity, input).Get(ctx, &res); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return &res, nil
}

// isTransportFailure reports errors that degrade an exploration instead of
// failing it. An activity that runs past its timeout never returns a
// TransportFailure itself, so timeouts count too.
func isTransportFailure(err error) bool {
	return isApplicationError(err, ErrTypeTransport) || sdktemporal.IsTimeoutError(err)
}

func isApplicationError(err error, errType string) bool {
	var appErr *sdktemporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == errType
}
