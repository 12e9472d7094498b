package archive

import (
	"math"
	"time"

	"github.com/Nooom01/automl-agent-system/types"
)

// lossSentinel replaces non finite loss values, MySQL DOUBLE has no Inf
const lossSentinel = -1

// StrategyOutcome is one strategy's archived result row
type StrategyOutcome struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:64;index:idx_outcomes_run"`
	Seq        int    `gorm:"index"`
	StrategyID string `gorm:"size:64"`
	Name       string `gorm:"size:128"`
	Approach   string `gorm:"size:32"`
	Success    bool
	Accuracy   float64
	Loss       float64
	TrainingMS int64
	SizeMB     float64
	Error      string    `gorm:"size:512"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (StrategyOutcome) TableName() string {
	return "strategy_outcomes"
}

// newOutcome flattens one result into its archive row
func newOutcome(view *types.RunView, result *types.ExecutionResult) StrategyOutcome {
	loss := result.Metrics.Loss
	if math.IsInf(loss, 0) || math.IsNaN(loss) {
		loss = lossSentinel
	}
	return StrategyOutcome{
		RunID:      view.ID,
		Seq:        view.Seq,
		StrategyID: result.StrategyID,
		Name:       result.Name,
		Approach:   string(result.Approach),
		Success:    result.Success,
		Accuracy:   result.Metrics.Accuracy,
		Loss:       loss,
		TrainingMS: result.Metrics.TrainingTime.Milliseconds(),
		SizeMB:     result.Metrics.SizeMB,
		Error:      result.Error,
	}
}
