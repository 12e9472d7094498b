package executor

import (
	"fmt"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// runningPercent marks an in flight phase, sub phase progress is not tracked
const runningPercent = 25

// PhaseExecutor runs single labeled phases and reports their progress
type PhaseExecutor struct {
	progress *types.ProgressQueue
	logger   *log.Logger
}

func NewPhaseExecutor(progress *types.ProgressQueue, logger *log.Logger) *PhaseExecutor {
	return &PhaseExecutor{
		progress: progress,
		logger:   logger,
	}
}

// Run executes one phase of one strategy's pipeline. A token triggered before
// the phase begins fails it with ErrAborted before any work is invoked and
// before any event is emitted. When work errors, emitting the failure event
// is left to the strategy runner, which has strategy wide context
func (e *PhaseExecutor) Run(phase types.Phase, strategyID string, token *CancelToken, work PhaseFunc) (*types.PhaseOutput, error) {
	if token.Triggered() {
		return nil, ErrAborted
	}

	e.emit(strategyID, phase, runningPercent, types.ProgressRunning, fmt.Sprintf("running %s phase", phase), nil)
	e.logger.With(log.LogParams{
		"strategy": strategyID,
		"phase":    phase,
	}).Debug("Phase started")

	out, err := work(token.Context())
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s phase returned no output", phase)
	}

	e.emit(strategyID, phase, 100, types.ProgressCompleted, fmt.Sprintf("%s phase completed", phase), out.Metrics)
	return out, nil
}

func (e *PhaseExecutor) emit(strategyID string, phase types.Phase, percent int, status types.ProgressStatus, message string, metrics map[string]float64) {
	e.progress.Add(&types.Progress{
		StrategyID: strategyID,
		Phase:      phase,
		Percent:    percent,
		Status:     status,
		Message:    message,
		Metrics:    metrics,
		Timestamp:  time.Now().UnixMilli(),
	})
}
