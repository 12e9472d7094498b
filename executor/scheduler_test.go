package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

// fakeDelegates simulates phase work with configurable latency, failures and
// per strategy accounting
type fakeDelegates struct {
	stepDelay time.Duration

	lock       sync.Mutex
	dataCalls  map[string]int
	startedAt  map[string]time.Time
	finishedAt map[string]time.Time
	failIn     map[string]types.Phase
	panicIn    map[string]types.Phase
	trainDelay map[string]time.Duration
	accuracy   map[string]float64
	trainMS    map[string]float64
}

func newFakeDelegates(stepDelay time.Duration) *fakeDelegates {
	return &fakeDelegates{
		stepDelay:  stepDelay,
		dataCalls:  make(map[string]int),
		startedAt:  make(map[string]time.Time),
		finishedAt: make(map[string]time.Time),
		failIn:     make(map[string]types.Phase),
		panicIn:    make(map[string]types.Phase),
		trainDelay: make(map[string]time.Duration),
		accuracy:   make(map[string]float64),
		trainMS:    make(map[string]float64),
	}
}

func (f *fakeDelegates) step(ctx context.Context, plan *types.OptimizationPlan, phase types.Phase) error {
	f.lock.Lock()
	if phase == types.PhaseData {
		f.dataCalls[plan.StrategyID]++
		if _, ok := f.startedAt[plan.StrategyID]; !ok {
			f.startedAt[plan.StrategyID] = time.Now()
		}
	}
	panicPhase, panicking := f.panicIn[plan.StrategyID]
	failPhase, failing := f.failIn[plan.StrategyID]
	delay := f.stepDelay
	if phase == types.PhaseTraining {
		if d, ok := f.trainDelay[plan.StrategyID]; ok {
			delay = d
		}
	}
	f.lock.Unlock()

	if panicking && panicPhase == phase {
		panic(fmt.Sprintf("%s exploded in %s", plan.StrategyID, phase))
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if failing && failPhase == phase {
		return errors.New(string(phase) + " failed")
	}
	return nil
}

func (f *fakeDelegates) PrepareData(ctx context.Context, plan *types.OptimizationPlan, dataset types.Dataset) (*types.PhaseOutput, error) {
	if err := f.step(ctx, plan, types.PhaseData); err != nil {
		return nil, err
	}
	return &types.PhaseOutput{Payload: dataset, Metrics: map[string]float64{"samples": 100}}, nil
}

func (f *fakeDelegates) BuildModel(ctx context.Context, plan *types.OptimizationPlan, data *types.PhaseOutput) (*types.PhaseOutput, error) {
	if err := f.step(ctx, plan, types.PhaseModel); err != nil {
		return nil, err
	}
	return &types.PhaseOutput{
		Payload: "model-" + plan.StrategyID,
		Metrics: map[string]float64{types.MetricParameters: 1 << 20},
	}, nil
}

func (f *fakeDelegates) Train(ctx context.Context, plan *types.OptimizationPlan, model *types.PhaseOutput) (*types.PhaseOutput, error) {
	if err := f.step(ctx, plan, types.PhaseTraining); err != nil {
		return nil, err
	}
	f.lock.Lock()
	ms, ok := f.trainMS[plan.StrategyID]
	f.lock.Unlock()
	if !ok {
		ms = 100
	}
	return &types.PhaseOutput{
		Payload: "trained-" + plan.StrategyID,
		Metrics: map[string]float64{types.MetricTrainingTimeMS: ms, types.MetricLoss: 0.5},
	}, nil
}

func (f *fakeDelegates) Evaluate(ctx context.Context, plan *types.OptimizationPlan, trained *types.PhaseOutput) (*types.PhaseOutput, error) {
	if err := f.step(ctx, plan, types.PhaseEvaluation); err != nil {
		return nil, err
	}
	f.lock.Lock()
	f.finishedAt[plan.StrategyID] = time.Now()
	acc, ok := f.accuracy[plan.StrategyID]
	f.lock.Unlock()
	if !ok {
		acc = 0.9
	}
	return &types.PhaseOutput{
		Metrics: map[string]float64{types.MetricAccuracy: acc, types.MetricLoss: 0.3},
	}, nil
}

func (f *fakeDelegates) calls(strategyID string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.dataCalls[strategyID]
}

func (f *fakeDelegates) started(strategyID string) time.Time {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.startedAt[strategyID]
}

func (f *fakeDelegates) finished(strategyID string) time.Time {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.finishedAt[strategyID]
}

func testPlans(n int) []*types.OptimizationPlan {
	plans := make([]*types.OptimizationPlan, n)
	for i := range plans {
		plans[i] = &types.OptimizationPlan{
			StrategyID: fmt.Sprintf("s%d", i),
			Name:       fmt.Sprintf("Strategy %d", i),
			Approach:   types.ApproachTransferLearning,
			Training:   types.TrainingConfig{Epochs: 5, BatchSize: 32},
		}
	}
	return plans
}

func TestExecuteStrategiesOrderAndBatching(t *testing.T) {
	fake := newFakeDelegates(5 * time.Millisecond)
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	plans := testPlans(7)
	results := e.ExecuteStrategies(context.Background(), plans, nil, Options{MaxConcurrent: 3})

	if len(results) != len(plans) {
		t.Fatalf("expected %d results, got %d", len(plans), len(results))
	}
	for i, result := range results {
		if result.StrategyID != plans[i].StrategyID {
			t.Errorf("result %d belongs to %s, want %s", i, result.StrategyID, plans[i].StrategyID)
		}
		if !result.Success {
			t.Errorf("strategy %s unexpectedly failed: %s", result.StrategyID, result.Error)
		}
	}

	batches := [][]int{{0, 1, 2}, {3, 4, 5}, {6}}
	for b := 1; b < len(batches); b++ {
		var prevSettled time.Time
		for _, i := range batches[b-1] {
			if end := fake.finished(plans[i].StrategyID); end.After(prevSettled) {
				prevSettled = end
			}
		}
		for _, i := range batches[b] {
			if start := fake.started(plans[i].StrategyID); start.Before(prevSettled) {
				t.Errorf("strategy %s started before batch %d settled", plans[i].StrategyID, b)
			}
		}
	}
}

func TestExecuteStrategiesFailureIsolation(t *testing.T) {
	fake := newFakeDelegates(2 * time.Millisecond)
	fake.failIn["s1"] = types.PhaseTraining
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	results := e.ExecuteStrategies(context.Background(), testPlans(3), nil, Options{MaxConcurrent: 3})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	failed := results[1]
	if failed.Success {
		t.Fatal("strategy s1 should have failed")
	}
	if !strings.Contains(failed.Error, "training failed") {
		t.Errorf("unexpected failure message %q", failed.Error)
	}
	if !math.IsInf(failed.Metrics.Loss, 1) {
		t.Errorf("failed loss = %v, want +Inf", failed.Metrics.Loss)
	}
	if failed.Metrics.Accuracy != 0 || failed.Metrics.SizeMB != 0 || failed.Metrics.TrainingTime != 0 {
		t.Errorf("failed metrics not zeroed: %+v", failed.Metrics)
	}
	if failed.Model != nil {
		t.Error("failed result should carry no model")
	}

	for _, i := range []int{0, 2} {
		if !results[i].Success {
			t.Errorf("strategy %s should have succeeded, got %s", results[i].StrategyID, results[i].Error)
		}
	}
}

func TestExecuteStrategiesPanicIsolation(t *testing.T) {
	fake := newFakeDelegates(2 * time.Millisecond)
	fake.panicIn["s0"] = types.PhaseModel
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	results := e.ExecuteStrategies(context.Background(), testPlans(2), nil, Options{MaxConcurrent: 2})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Success {
		t.Fatal("panicking strategy should settle as failed")
	}
	if !strings.Contains(results[0].Error, "internal fault") {
		t.Errorf("unexpected panic failure message %q", results[0].Error)
	}
	if !results[1].Success {
		t.Errorf("sibling should survive the panic, got %s", results[1].Error)
	}
}

func TestEarlyStopSkipsUnstartedBatches(t *testing.T) {
	fake := newFakeDelegates(2 * time.Millisecond)
	fake.accuracy["s0"] = 0.97
	fake.accuracy["s1"] = 0.97
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	results := e.ExecuteStrategies(context.Background(), testPlans(4), nil, Options{
		MaxConcurrent:      2,
		EarlyStopOnSuccess: true,
	})

	if len(results) != 2 {
		t.Fatalf("expected only the first batch's results, got %d", len(results))
	}
	for _, id := range []string{"s2", "s3"} {
		if fake.calls(id) != 0 {
			t.Errorf("strategy %s should never start after early stop", id)
		}
	}
}

func TestEarlyStopCancelsSiblings(t *testing.T) {
	fake := newFakeDelegates(3 * time.Millisecond)
	fake.accuracy["s0"] = 0.96
	fake.trainDelay["s1"] = 500 * time.Millisecond
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	begin := time.Now()
	results := e.ExecuteStrategies(context.Background(), testPlans(2), nil, Options{
		MaxConcurrent:      2,
		EarlyStopOnSuccess: true,
	})
	elapsed := time.Since(begin)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success {
		t.Fatalf("fast strategy should have succeeded, got %s", results[0].Error)
	}
	if results[1].Success {
		t.Fatal("slow sibling should have been cancelled")
	}
	if results[1].Error != ErrAborted.Error() {
		t.Errorf("cancelled sibling error = %q, want %q", results[1].Error, ErrAborted.Error())
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("cancellation should settle the slow sibling quickly, took %v", elapsed)
	}
}

func TestExecuteStrategiesNoPlans(t *testing.T) {
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(newFakeDelegates(time.Millisecond), queue, log.DummyLogger())
	if results := e.ExecuteStrategies(context.Background(), nil, nil, Options{}); results != nil {
		t.Errorf("expected no results for no plans, got %d", len(results))
	}
}

func TestExecuteStrategiesParentCancellation(t *testing.T) {
	fake := newFakeDelegates(2 * time.Millisecond)
	fake.trainDelay["s0"] = 500 * time.Millisecond
	fake.trainDelay["s1"] = 500 * time.Millisecond
	queue := types.NewProgressQueue(log.DummyLogger())
	e := NewExecutor(fake, queue, log.DummyLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	results := e.ExecuteStrategies(ctx, testPlans(3), nil, Options{MaxConcurrent: 1})

	if len(results) == 0 || len(results) == 3 {
		t.Fatalf("expected a partial run, got %d results", len(results))
	}
	last := results[len(results)-1]
	if last.Success {
		t.Error("in flight strategy should settle as aborted when the parent context is cancelled")
	}
	if last.Error != ErrAborted.Error() {
		t.Errorf("aborted error = %q, want %q", last.Error, ErrAborted.Error())
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("MaxConcurrent default = %d, want %d", opts.MaxConcurrent, DefaultMaxConcurrent)
	}
	if opts.StrategyTimeout != DefaultStrategyTimeout {
		t.Errorf("StrategyTimeout default = %v, want %v", opts.StrategyTimeout, DefaultStrategyTimeout)
	}
	if opts.EarlyStopOnSuccess {
		t.Error("early stop should default to off")
	}

	custom := Options{MaxConcurrent: 5, StrategyTimeout: time.Minute}.withDefaults()
	if custom.MaxConcurrent != 5 || custom.StrategyTimeout != time.Minute {
		t.Errorf("explicit options overridden: %+v", custom)
	}
}
