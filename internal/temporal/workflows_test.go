package temporal

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func newWorkflowEnv() *testsuite.TestWorkflowEnvironment {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterActivity(TraverseActivity)
	env.RegisterActivity(ScoreActivity)
	return env
}

func TestExploreWorkflow_OneRoot(t *testing.T) {
	env := newWorkflowEnv()
	env.OnActivity(TraverseActivity, mock.Anything, TraverseInput{Roots: []string{"apple"}, Depth: 2}).
		Return(TraverseResult{Strategy: "stub", Paths: []graph.PathRecord{
			graph.NewPath("apple", "fruit"),
			graph.NewPath("apple", "fruit", "seed"),
			graph.NewPath("apple", "the", "tree"),
		}}, nil)

	env.ExecuteWorkflow(ExploreWorkflow, ExploreInput{Roots: []string{"Apple"}, Depth: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out ExploreOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.False(t, out.Degraded)
	assert.Equal(t, 3, out.Paths)
	assert.Equal(t, []graph.Relation{
		{Source: "apple", Target: "fruit", Count: 2},
		{Source: "fruit", Target: "seed", Count: 1},
	}, out.Relations)
	require.NotNil(t, out.View)
	assert.Equal(t, graph.ModeOneRoot, out.View.Mode)
	env.AssertExpectations(t)
}

func TestExploreWorkflow_IncludeStopwordsAndCustomList(t *testing.T) {
	paths := []graph.PathRecord{
		graph.NewPath("apple", "the", "tree"),
		graph.NewPath("apple", "fruit"),
	}

	env := newWorkflowEnv()
	env.OnActivity(TraverseActivity, mock.Anything, mock.Anything).Return(TraverseResult{Paths: paths}, nil)
	env.ExecuteWorkflow(ExploreWorkflow, ExploreInput{Roots: []string{"apple"}, Depth: 2, IncludeStopwords: true})
	require.NoError(t, env.GetWorkflowError())
	var out ExploreOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Len(t, out.Relations, 3)

	env = newWorkflowEnv()
	env.OnActivity(TraverseActivity, mock.Anything, mock.Anything).Return(TraverseResult{Paths: paths}, nil)
	env.ExecuteWorkflow(ExploreWorkflow, ExploreInput{Roots: []string{"apple"}, Depth: 2, Stopwords: []string{"fruit"}})
	require.NoError(t, env.GetWorkflowError())
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, []graph.Relation{
		{Source: "apple", Target: "the", Count: 1},
		{Source: "the", Target: "tree", Count: 1},
	}, out.Relations)
}

func TestExploreWorkflow_TransportFailureDegrades(t *testing.T) {
	calls := 0
	env := newWorkflowEnv()
	env.OnActivity(TraverseActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in TraverseInput) (TraverseResult, error) {
			calls++
			return TraverseResult{}, sdktemporal.NewApplicationError("connection refused", ErrTypeTransport)
		})

	env.ExecuteWorkflow(ExploreWorkflow, ExploreInput{Roots: []string{"cat", "dog"}, Depth: 3})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, maxRetries+1, calls)

	var out ExploreOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.True(t, out.Degraded)
	assert.Empty(t, out.Relations)
	require.NotNil(t, out.View)
	require.Len(t, out.View.Nodes, 2)
	assert.Equal(t, "cat", out.View.Nodes[0].ID)
	assert.Empty(t, out.View.Edges)
}

func TestExploreWorkflow_DecodeFailureFails(t *testing.T) {
	calls := 0
	env := newWorkflowEnv()
	env.OnActivity(TraverseActivity, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in TraverseInput) (TraverseResult, error) {
			calls++
			return TraverseResult{}, sdktemporal.NewNonRetryableApplicationError("bad payload", ErrTypeDecode, nil)
		})

	env.ExecuteWorkflow(ExploreWorkflow, ExploreInput{Roots: []string{"apple"}, Depth: 1})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, calls)
}

func TestExploreWorkflow_InvalidQuery(t *testing.T) {
	tests := map[string]ExploreInput{
		"hostile root":   {Roots: []string{`apple"}) DETACH DELETE n //`}, Depth: 1},
		"zero depth":     {Roots: []string{"apple"}, Depth: 0},
		"too deep":       {Roots: []string{"apple"}, Depth: 9, MaxDepth: 6},
		"too many roots": {Roots: []string{"a", "b", "c"}, Depth: 1},
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			env := newWorkflowEnv()
			env.ExecuteWorkflow(ExploreWorkflow, input)

			require.True(t, env.IsWorkflowCompleted())
			require.Error(t, env.GetWorkflowError())
			assert.Contains(t, env.GetWorkflowError().Error(), "invalid graph query")
		})
	}
}

func TestComplexityWorkflow(t *testing.T) {
	score := 3.0
	env := newWorkflowEnv()
	env.OnActivity(ScoreActivity, mock.Anything, ComplexityInput{Text: "The dog ran."}).
		Return(&complexity.Result{Score: &score, Tokens: 2, Matched: 2, Total: 6, UnknownTokens: []string{}}, nil)

	env.ExecuteWorkflow(ComplexityWorkflow, ComplexityInput{Text: "The dog ran."})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res complexity.Result
	require.NoError(t, env.GetWorkflowResult(&res))
	require.NotNil(t, res.Score)
	assert.Equal(t, 3.0, *res.Score)
	assert.Equal(t, 2, res.Matched)
}

func TestComplexityWorkflow_DivisionByZero(t *testing.T) {
	env := newWorkflowEnv()
	env.OnActivity(ScoreActivity, mock.Anything, mock.Anything).
		Return(&complexity.Result{DivisionByZero: true, UnknownTokens: []string{"zorb"}, Tokens: 1}, nil)

	env.ExecuteWorkflow(ComplexityWorkflow, ComplexityInput{Text: "zorb"})

	require.NoError(t, env.GetWorkflowError())
	var res complexity.Result
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Nil(t, res.Score)
	assert.True(t, res.DivisionByZero)
	assert.Equal(t, []string{"zorb"}, res.UnknownTokens)
}

func TestIsTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", sdktemporal.NewApplicationError("down", ErrTypeTransport), true},
		{"activity timeout", sdktemporal.NewHeartbeatTimeoutError(), true},
		{"wrapped timeout", fmt.Errorf("traverse: %w", sdktemporal.NewHeartbeatTimeoutError()), true},
		{"decode", sdktemporal.NewNonRetryableApplicationError("bad", ErrTypeDecode, nil), false},
		{"invalid query", sdktemporal.NewNonRetryableApplicationError("bad", ErrTypeInvalidQuery, nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransportFailure(tt.err))
		})
	}
}
