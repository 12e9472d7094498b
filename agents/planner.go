package agents

import (
	"github.com/google/uuid"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// demandingTarget is the accuracy above which plans get a larger training
// budget
const demandingTarget = 0.95

// StrategyPlanner proposes the candidate optimization plans for a task, one
// per approach family
type StrategyPlanner struct {
	logger *log.Logger
}

func NewStrategyPlanner(logger *log.Logger) *StrategyPlanner {
	return &StrategyPlanner{logger: logger}
}

// Plan builds a transfer learning, a data centric and an ensemble candidate
// for the task. Demanding targets raise epochs and ensemble members, tasks
// beyond two categories get wider dense layers
func (p *StrategyPlanner) Plan(task *types.Task) []*types.OptimizationPlan {
	demanding := task.TargetAccuracy >= demandingTarget

	transfer := &types.OptimizationPlan{
		StrategyID: uuid.NewString(),
		Name:       "MobileNet Transfer",
		Approach:   types.ApproachTransferLearning,
		Categories: task.Categories,
		Model: types.ModelConfig{
			Architecture: "mobilenet_v2",
			Backbone:     "mobilenet_v2",
			InputSize:    224,
			Units:        128,
			Dropout:      0.3,
		},
		Training: types.TrainingConfig{
			Epochs:       10,
			BatchSize:    32,
			LearningRate: 1e-4,
			Optimizer:    "adam",
		},
	}

	dataCentric := &types.OptimizationPlan{
		StrategyID: uuid.NewString(),
		Name:       "Augmented CNN",
		Approach:   types.ApproachDataCentric,
		Categories: task.Categories,
		Model: types.ModelConfig{
			Architecture: "cnn",
			InputSize:    128,
			Units:        256,
			Dropout:      0.4,
		},
		Training: types.TrainingConfig{
			Epochs:       20,
			BatchSize:    32,
			LearningRate: 1e-3,
			Optimizer:    "adam",
			Augment:      true,
		},
	}

	ensemble := &types.OptimizationPlan{
		StrategyID: uuid.NewString(),
		Name:       "CNN Ensemble",
		Approach:   types.ApproachEnsemble,
		Categories: task.Categories,
		Model: types.ModelConfig{
			Architecture: "cnn",
			InputSize:    160,
			Units:        128,
			Dropout:      0.25,
			Members:      3,
		},
		Training: types.TrainingConfig{
			Epochs:       15,
			BatchSize:    32,
			LearningRate: 1e-3,
			Optimizer:    "adam",
		},
	}

	if demanding {
		transfer.Training.Epochs = 15
		dataCentric.Training.Epochs = 30
		ensemble.Training.Epochs = 20
		ensemble.Model.Members = 5
	}
	if len(task.Categories) > 2 {
		transfer.Model.Units = 192
		dataCentric.Model.Units = 384
		ensemble.Model.Units = 192
	}

	plans := []*types.OptimizationPlan{transfer, dataCentric, ensemble}
	p.logger.With(log.LogParams{
		"plans":  len(plans),
		"target": task.TargetAccuracy,
	}).Info("Planned candidate strategies")
	return plans
}
