package executor

import (
	"context"
	"errors"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// bytesPerParameter sizes models from their parameter count, assuming
// float32 weights
const bytesPerParameter = 4

// StrategyRunner drives a single plan through the data, model, training and
// evaluation phases
type StrategyRunner struct {
	delegates Delegates
	phases    *PhaseExecutor
	registry  *Registry
	progress  *types.ProgressQueue
	timeout   time.Duration
	logger    *log.Logger
}

func NewStrategyRunner(delegates Delegates, progress *types.ProgressQueue, registry *Registry, timeout time.Duration, logger *log.Logger) *StrategyRunner {
	return &StrategyRunner{
		delegates: delegates,
		phases:    NewPhaseExecutor(progress, logger),
		registry:  registry,
		progress:  progress,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run executes every phase of the plan in order. It never returns an error:
// all failure paths, timeout and cancellation included, resolve to a failed
// result carrying the sentinel metrics
func (r *StrategyRunner) Run(ctx context.Context, plan *types.OptimizationPlan, dataset types.Dataset) *types.ExecutionResult {
	token := NewCancelToken(ctx, plan.StrategyID)
	r.registry.Register(token)
	timer := time.AfterFunc(r.timeout, func() {
		token.Trigger(ReasonTimeout)
	})
	defer func() {
		timer.Stop()
		r.registry.Remove(plan.StrategyID)
		token.Release()
	}()

	logger := r.logger.With(log.LogParams{
		"strategy": plan.StrategyID,
		"approach": plan.Approach,
	})
	logger.Info("Executing strategy")

	dataOut, err := r.phases.Run(types.PhaseData, plan.StrategyID, token, func(c context.Context) (*types.PhaseOutput, error) {
		return r.delegates.PrepareData(c, plan, dataset)
	})
	if err != nil {
		return r.fail(plan, types.PhaseData, token, err)
	}

	modelOut, err := r.phases.Run(types.PhaseModel, plan.StrategyID, token, func(c context.Context) (*types.PhaseOutput, error) {
		return r.delegates.BuildModel(c, plan, dataOut)
	})
	if err != nil {
		return r.fail(plan, types.PhaseModel, token, err)
	}

	trainedOut, err := r.phases.Run(types.PhaseTraining, plan.StrategyID, token, func(c context.Context) (*types.PhaseOutput, error) {
		return r.delegates.Train(c, plan, modelOut)
	})
	if err != nil {
		return r.fail(plan, types.PhaseTraining, token, err)
	}

	evalOut, err := r.phases.Run(types.PhaseEvaluation, plan.StrategyID, token, func(c context.Context) (*types.PhaseOutput, error) {
		return r.delegates.Evaluate(c, plan, trainedOut)
	})
	if err != nil {
		return r.fail(plan, types.PhaseEvaluation, token, err)
	}

	return r.succeed(plan, modelOut, trainedOut, evalOut, logger)
}

// fail emits the strategy's terminal failed event, labeled with the phase
// most recently attempted, and normalizes cancellations so they surface
// uniformly as ErrAborted no matter how the delegate reported them
func (r *StrategyRunner) fail(plan *types.OptimizationPlan, phase types.Phase, token *CancelToken, err error) *types.ExecutionResult {
	if token.Triggered() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = ErrAborted
	}
	r.logger.With(log.LogParams{
		"strategy": plan.StrategyID,
		"phase":    phase,
		"err":      err.Error(),
	}).Error("Strategy failed")

	r.progress.Add(&types.Progress{
		StrategyID: plan.StrategyID,
		Phase:      phase,
		Percent:    100,
		Status:     types.ProgressFailed,
		Message:    err.Error(),
		Timestamp:  time.Now().UnixMilli(),
	})
	return types.NewFailedResult(plan, err)
}

func (r *StrategyRunner) succeed(plan *types.OptimizationPlan, modelOut, trainedOut, evalOut *types.PhaseOutput, logger *log.Logger) *types.ExecutionResult {
	accuracy, _ := evalOut.Metric(types.MetricAccuracy)
	loss, _ := evalOut.Metric(types.MetricLoss)
	trainingMS, _ := trainedOut.Metric(types.MetricTrainingTimeMS)

	metrics := types.Metrics{
		Accuracy:     accuracy,
		Loss:         loss,
		TrainingTime: time.Duration(trainingMS * float64(time.Millisecond)),
		SizeMB:       modelSizeMB(modelOut),
	}

	r.progress.Add(&types.Progress{
		StrategyID: plan.StrategyID,
		Phase:      types.PhaseEvaluation,
		Percent:    100,
		Status:     types.ProgressCompleted,
		Message:    "strategy completed",
		Metrics: map[string]float64{
			types.MetricAccuracy:       metrics.Accuracy,
			types.MetricLoss:           metrics.Loss,
			types.MetricTrainingTimeMS: trainingMS,
			"size_mb":                  metrics.SizeMB,
		},
		Timestamp: time.Now().UnixMilli(),
	})
	logger.With(log.LogParams{"accuracy": metrics.Accuracy}).Info("Strategy completed")

	return &types.ExecutionResult{
		StrategyID: plan.StrategyID,
		Name:       plan.Name,
		Approach:   plan.Approach,
		Success:    true,
		Metrics:    metrics,
		Model:      trainedOut.Payload,
	}
}

// modelSizeMB derives a size estimate from the model phase's parameter count
func modelSizeMB(modelOut *types.PhaseOutput) float64 {
	params, ok := modelOut.Metric(types.MetricParameters)
	if !ok {
		return 0
	}
	return params * bytesPerParameter / (1024 * 1024)
}
