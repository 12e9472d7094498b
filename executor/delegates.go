package executor

import (
	"context"

	"github.com/Nooom01/automl-agent-system/types"
)

// Delegates supplies the external collaborators that perform each phase's
// actual work. The execution core passes payloads between phases without
// interpreting them beyond the documented metric keys
type Delegates interface {
	// PrepareData assembles the dataset the strategy trains on
	PrepareData(ctx context.Context, plan *types.OptimizationPlan, dataset types.Dataset) (*types.PhaseOutput, error)
	// BuildModel constructs the model the plan describes, reporting parameters
	BuildModel(ctx context.Context, plan *types.OptimizationPlan, data *types.PhaseOutput) (*types.PhaseOutput, error)
	// Train fits the model, reporting training_time_ms and loss
	Train(ctx context.Context, plan *types.OptimizationPlan, model *types.PhaseOutput) (*types.PhaseOutput, error)
	// Evaluate measures the trained model, reporting accuracy and loss
	Evaluate(ctx context.Context, plan *types.OptimizationPlan, trained *types.PhaseOutput) (*types.PhaseOutput, error)
}

// PhaseFunc is one unit of delegated phase work
type PhaseFunc func(ctx context.Context) (*types.PhaseOutput, error)
