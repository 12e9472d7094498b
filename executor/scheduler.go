package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

const (
	// DefaultMaxConcurrent bounds the strategies running in one batch
	DefaultMaxConcurrent = 3
	// DefaultStrategyTimeout is the per strategy wall clock budget
	DefaultStrategyTimeout = time.Hour
	// EarlyStopAccuracy is the fixed threshold that ends a run early once a
	// successful strategy reaches it
	EarlyStopAccuracy = 0.95
)

// Options bound one ExecuteStrategies call. Zero values fall back to the
// package defaults
type Options struct {
	MaxConcurrent      int
	StrategyTimeout    time.Duration
	EarlyStopOnSuccess bool
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.StrategyTimeout <= 0 {
		o.StrategyTimeout = DefaultStrategyTimeout
	}
	return o
}

// Executor batches candidate strategies and runs each batch concurrently
type Executor struct {
	delegates Delegates
	progress  *types.ProgressQueue
	logger    *log.Logger
}

func NewExecutor(delegates Delegates, progress *types.ProgressQueue, logger *log.Logger) *Executor {
	return &Executor{
		delegates: delegates,
		progress:  progress,
		logger:    logger.With(log.LogParams{"service": "StrategyExecutor"}),
	}
}

type settled struct {
	index  int
	result *types.ExecutionResult
}

// ExecuteStrategies runs every plan through the phase pipeline in
// consecutive batches of at most opts.MaxConcurrent. Batches run one after
// another, strategies within a batch run concurrently. The returned slice
// holds one result per plan of every processed batch, in input order. A
// strategy's failure, or even a panic below the runner, never disturbs its
// siblings. With early stop enabled, a successful result at or above
// EarlyStopAccuracy cancels the rest of its batch and unstarted batches are
// skipped entirely
func (e *Executor) ExecuteStrategies(ctx context.Context, plans []*types.OptimizationPlan, dataset types.Dataset, opts Options) []*types.ExecutionResult {
	opts = opts.withDefaults()
	if len(plans) == 0 {
		return nil
	}

	registry := NewRegistry()
	runner := NewStrategyRunner(e.delegates, e.progress, registry, opts.StrategyTimeout, e.logger)
	numBatches := (len(plans) + opts.MaxConcurrent - 1) / opts.MaxConcurrent

	results := make([]*types.ExecutionResult, 0, len(plans))
	stopped := false

	for start := 0; start < len(plans) && !stopped; start += opts.MaxConcurrent {
		if ctx.Err() != nil {
			break
		}
		end := start + opts.MaxConcurrent
		if end > len(plans) {
			end = len(plans)
		}
		batch := plans[start:end]
		e.logger.With(log.LogParams{
			"batch":   start/opts.MaxConcurrent + 1,
			"batches": numBatches,
			"size":    len(batch),
		}).Info("Executing strategy batch")

		settledCh := make(chan settled, len(batch))
		for i, plan := range batch {
			e.progress.Add(&types.Progress{
				StrategyID: plan.StrategyID,
				Phase:      types.PhaseData,
				Percent:    0,
				Status:     types.ProgressPending,
				Message:    "queued",
				Timestamp:  time.Now().UnixMilli(),
			})
			go func(i int, plan *types.OptimizationPlan) {
				defer func() {
					if rec := recover(); rec != nil {
						settledCh <- settled{i, types.NewFailedResult(plan, fmt.Errorf("internal fault: %v", rec))}
					}
				}()
				settledCh <- settled{i, runner.Run(ctx, plan, dataset)}
			}(i, plan)
		}

		slots := make([]*types.ExecutionResult, len(batch))
		for remaining := len(batch); remaining > 0; remaining-- {
			s := <-settledCh
			slots[s.index] = s.result
			if opts.EarlyStopOnSuccess && !stopped && s.result.Success && s.result.Metrics.Accuracy >= EarlyStopAccuracy {
				stopped = true
				e.logger.With(log.LogParams{
					"strategy": s.result.StrategyID,
					"accuracy": s.result.Metrics.Accuracy,
				}).Info("Early stop threshold reached, cancelling remaining strategies")
				registry.TriggerAll(ReasonEarlyStop)
			}
		}
		results = append(results, slots...)
	}
	return results
}
