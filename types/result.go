package types

import (
	"encoding/json"
	"math"
	"time"
)

// Metrics are the final readings for one executed strategy
type Metrics struct {
	// Accuracy in [0, 1]
	Accuracy float64
	// Loss is non negative, +Inf on failure
	Loss         float64
	TrainingTime time.Duration
	SizeMB       float64
}

// MarshalJSON reports training time in milliseconds and maps the loss
// sentinel to null since JSON has no representation for +Inf
func (m Metrics) MarshalJSON() ([]byte, error) {
	var loss *float64
	if !math.IsInf(m.Loss, 0) && !math.IsNaN(m.Loss) {
		loss = &m.Loss
	}
	return json.Marshal(struct {
		Accuracy       float64  `json:"accuracy"`
		Loss           *float64 `json:"loss"`
		TrainingTimeMS int64    `json:"training_time_ms"`
		SizeMB         float64  `json:"size_mb"`
	}{
		Accuracy:       m.Accuracy,
		Loss:           loss,
		TrainingTimeMS: m.TrainingTime.Milliseconds(),
		SizeMB:         m.SizeMB,
	})
}

// FailureMetrics is the sentinel metric set every failed result carries
func FailureMetrics() Metrics {
	return Metrics{
		Accuracy:     0,
		Loss:         math.Inf(1),
		TrainingTime: 0,
		SizeMB:       0,
	}
}

// ExecutionResult is the durable outcome of one strategy run. Failed results
// carry the failure sentinel metrics and never a model handle
type ExecutionResult struct {
	StrategyID string   `json:"strategy_id"`
	Name       string   `json:"name"`
	Approach   Approach `json:"approach"`
	Success    bool     `json:"success"`
	Metrics    Metrics  `json:"metrics"`
	// Model is the opaque trained model handle, successful runs only
	Model interface{} `json:"-"`
	Error string      `json:"error,omitempty"`
}

// NewFailedResult normalizes a failure into a result the scheduler can collect
func NewFailedResult(plan *OptimizationPlan, err error) *ExecutionResult {
	result := &ExecutionResult{
		Success: false,
		Metrics: FailureMetrics(),
	}
	if plan != nil {
		result.StrategyID = plan.StrategyID
		result.Name = plan.Name
		result.Approach = plan.Approach
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
