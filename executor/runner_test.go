package executor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

func recvProgress(t *testing.T, ch chan *types.Progress) *types.Progress {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress event")
		return nil
	}
}

func TestRunnerSuccessMetrics(t *testing.T) {
	fake := newFakeDelegates(time.Millisecond)
	fake.accuracy["s0"] = 0.93
	fake.trainMS["s0"] = 4200
	queue := types.NewProgressQueue(log.DummyLogger())
	registry := NewRegistry()
	runner := NewStrategyRunner(fake, queue, registry, time.Minute, log.DummyLogger())

	result := runner.Run(context.Background(), testPlans(1)[0], nil)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	if result.Metrics.Accuracy != 0.93 {
		t.Errorf("accuracy = %v, want 0.93", result.Metrics.Accuracy)
	}
	if result.Metrics.TrainingTime != 4200*time.Millisecond {
		t.Errorf("training time = %v, want 4.2s", result.Metrics.TrainingTime)
	}
	if result.Metrics.SizeMB != 4 {
		t.Errorf("size = %v MB, want 4 for 2^20 float32 parameters", result.Metrics.SizeMB)
	}
	if result.Model == nil {
		t.Error("successful result should carry the trained model handle")
	}
	if registry.Active() != 0 {
		t.Errorf("registry should be empty after the run, has %d entries", registry.Active())
	}
}

func TestRunnerTimeoutAborts(t *testing.T) {
	fake := newFakeDelegates(2 * time.Millisecond)
	fake.trainDelay["s0"] = 500 * time.Millisecond
	queue := types.NewProgressQueue(log.DummyLogger())
	registry := NewRegistry()
	runner := NewStrategyRunner(fake, queue, registry, 20*time.Millisecond, log.DummyLogger())

	begin := time.Now()
	result := runner.Run(context.Background(), testPlans(1)[0], nil)
	elapsed := time.Since(begin)

	if result.Success {
		t.Fatal("run should have timed out")
	}
	if result.Error != ErrAborted.Error() {
		t.Errorf("timeout error = %q, want %q", result.Error, ErrAborted.Error())
	}
	if !math.IsInf(result.Metrics.Loss, 1) {
		t.Errorf("aborted loss = %v, want +Inf", result.Metrics.Loss)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("timeout should interrupt the training sleep, took %v", elapsed)
	}
	if registry.Active() != 0 {
		t.Errorf("registry should be empty after the run, has %d entries", registry.Active())
	}
}

func TestRunnerEventTrail(t *testing.T) {
	fake := newFakeDelegates(time.Millisecond)
	queue := types.NewProgressQueue(log.DummyLogger())
	if err := queue.Start(); err != nil {
		t.Fatal(err)
	}
	defer queue.Stop()

	sub, err := queue.Subscribe("trail")
	if err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	runner := NewStrategyRunner(fake, queue, registry, time.Minute, log.DummyLogger())
	result := runner.Run(context.Background(), testPlans(1)[0], nil)
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	type expectation struct {
		phase   types.Phase
		percent int
		status  types.ProgressStatus
	}
	expected := []expectation{
		{types.PhaseData, 25, types.ProgressRunning},
		{types.PhaseData, 100, types.ProgressCompleted},
		{types.PhaseModel, 25, types.ProgressRunning},
		{types.PhaseModel, 100, types.ProgressCompleted},
		{types.PhaseTraining, 25, types.ProgressRunning},
		{types.PhaseTraining, 100, types.ProgressCompleted},
		{types.PhaseEvaluation, 25, types.ProgressRunning},
		{types.PhaseEvaluation, 100, types.ProgressCompleted},
		{types.PhaseEvaluation, 100, types.ProgressCompleted},
	}
	for i, want := range expected {
		event := recvProgress(t, sub)
		if event.Phase != want.phase || event.Percent != want.percent || event.Status != want.status {
			t.Fatalf("event %d = %s/%d/%s, want %s/%d/%s",
				i, event.Phase, event.Percent, event.Status, want.phase, want.percent, want.status)
		}
		if i == len(expected)-1 && event.Metrics[types.MetricAccuracy] == 0 {
			t.Error("terminal event should carry the final accuracy")
		}
	}
}

func TestRunnerFailureEmitsSingleTerminalEvent(t *testing.T) {
	fake := newFakeDelegates(time.Millisecond)
	fake.failIn["s0"] = types.PhaseModel
	queue := types.NewProgressQueue(log.DummyLogger())
	if err := queue.Start(); err != nil {
		t.Fatal(err)
	}
	defer queue.Stop()

	sub, err := queue.Subscribe("trail")
	if err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	runner := NewStrategyRunner(fake, queue, registry, time.Minute, log.DummyLogger())
	result := runner.Run(context.Background(), testPlans(1)[0], nil)
	if result.Success {
		t.Fatal("run should have failed in the model phase")
	}

	type expectation struct {
		phase  types.Phase
		status types.ProgressStatus
	}
	expected := []expectation{
		{types.PhaseData, types.ProgressRunning},
		{types.PhaseData, types.ProgressCompleted},
		{types.PhaseModel, types.ProgressRunning},
		{types.PhaseModel, types.ProgressFailed},
	}
	for i, want := range expected {
		event := recvProgress(t, sub)
		if event.Phase != want.phase || event.Status != want.status {
			t.Fatalf("event %d = %s/%s, want %s/%s", i, event.Phase, event.Status, want.phase, want.status)
		}
	}
	if queue.Size() != 0 {
		t.Errorf("no further events expected, %d still queued", queue.Size())
	}
}
