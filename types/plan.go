package types

// Approach labels the optimization family a plan belongs to
type Approach string

const (
	ApproachTransferLearning Approach = "transfer_learning"
	ApproachDataCentric      Approach = "data_centric"
	ApproachEnsemble         Approach = "ensemble"
)

func (a Approach) String() string {
	return string(a)
}

// ModelConfig describes the model a plan builds
type ModelConfig struct {
	Architecture string `json:"architecture"`
	// Backbone pretrained network, transfer learning only
	Backbone  string  `json:"backbone,omitempty"`
	InputSize int     `json:"input_size"`
	Units     int     `json:"dense_units"`
	Dropout   float64 `json:"dropout"`
	// Members in the ensemble, ensemble only
	Members int `json:"members,omitempty"`
}

// TrainingConfig describes how a plan trains its model
type TrainingConfig struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Optimizer    string  `json:"optimizer"`
	Augment      bool    `json:"augment"`
}

// OptimizationPlan is one candidate end to end approach to a task. Plans are
// produced by the planner and read only inside the execution core
type OptimizationPlan struct {
	StrategyID string         `json:"strategy_id"`
	Name       string         `json:"name"`
	Approach   Approach       `json:"approach"`
	Model      ModelConfig    `json:"model"`
	Training   TrainingConfig `json:"training"`
	Categories []string       `json:"categories"`
}
