package temporal

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(ExploreWorkflow)
	w.RegisterWorkflow(ComplexityWorkflow)
	w.RegisterActivity(TraverseActivity)
	w.RegisterActivity(ScoreActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// RunExplore starts an ExploreWorkflow and waits for its result.
func RunExplore(ctx context.Context, c client.Client, taskQueue string, input ExploreInput) (string, *ExploreOutput, error) {
	id := "explore-" + uuid.NewString()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: taskQueue,
	}, ExploreWorkflow, input)
	if err != nil {
		return id, nil, fmt.Errorf("start explore workflow: %w", err)
	}

	var out ExploreOutput
	if err := run.Get(ctx, &out); err != nil {
		return id, nil, fmt.Errorf("explore workflow %s: %w", id, err)
	}
	return id, &out, nil
}

// RunComplexity starts a ComplexityWorkflow and waits for its result.
func RunComplexity(ctx context.Context, c client.Client, taskQueue string, input ComplexityInput) (string, *complexity.Result, error) {
	id := "complexity-" + uuid.NewString()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: taskQueue,
	}, ComplexityWorkflow, input)
	if err != nil {
		return id, nil, fmt.Errorf("start complexity workflow: %w", err)
	}

	var out complexity.Result
	if err := run.Get(ctx, &out); err != nil {
		return id, nil, fmt.Errorf("complexity workflow %s: %w", id, err)
	}
	return id, &out, nil
}
