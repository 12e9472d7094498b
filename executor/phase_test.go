package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/Nooom01/automl-agent-system/log"
	"github.com/Nooom01/automl-agent-system/types"
)

func TestPhaseRunCancelledBeforeStart(t *testing.T) {
	queue := types.NewProgressQueue(log.DummyLogger())
	pe := NewPhaseExecutor(queue, log.DummyLogger())
	token := NewCancelToken(context.Background(), "s0")
	defer token.Release()
	token.Trigger(ReasonEarlyStop)

	invoked := false
	out, err := pe.Run(types.PhaseData, "s0", token, func(ctx context.Context) (*types.PhaseOutput, error) {
		invoked = true
		return &types.PhaseOutput{}, nil
	})

	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if out != nil {
		t.Error("aborted phase should produce no output")
	}
	if invoked {
		t.Error("work must not be invoked once the token is triggered")
	}
	if queue.Size() != 0 {
		t.Errorf("aborted phase should emit no events, %d queued", queue.Size())
	}
}

func TestPhaseRunRejectsNilOutput(t *testing.T) {
	queue := types.NewProgressQueue(log.DummyLogger())
	pe := NewPhaseExecutor(queue, log.DummyLogger())
	token := NewCancelToken(context.Background(), "s0")
	defer token.Release()

	_, err := pe.Run(types.PhaseModel, "s0", token, func(ctx context.Context) (*types.PhaseOutput, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error for a phase returning no output")
	}
	// only the running event, no completion
	if queue.Size() != 1 {
		t.Errorf("expected 1 queued event, got %d", queue.Size())
	}
}

func TestCancelTokenFirstReasonWins(t *testing.T) {
	token := NewCancelToken(context.Background(), "s0")
	defer token.Release()

	if token.Triggered() {
		t.Fatal("fresh token should not be triggered")
	}
	token.Trigger(ReasonTimeout)
	token.Trigger(ReasonEarlyStop)

	if !token.Triggered() {
		t.Fatal("token should be triggered")
	}
	if token.Reason() != ReasonTimeout {
		t.Errorf("reason = %s, want the first trigger to win", token.Reason())
	}
	select {
	case <-token.Context().Done():
	default:
		t.Error("token context should be cancelled after Trigger")
	}
}

func TestCancelTokenInheritsParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	token := NewCancelToken(ctx, "s0")
	defer token.Release()

	cancel()
	if !token.Triggered() {
		t.Error("token should observe parent cancellation")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	a := NewCancelToken(context.Background(), "a")
	b := NewCancelToken(context.Background(), "b")
	defer a.Release()
	defer b.Release()

	registry.Register(a)
	registry.Register(b)
	if registry.Active() != 2 {
		t.Fatalf("active = %d, want 2", registry.Active())
	}
	if got, ok := registry.Get("a"); !ok || got != a {
		t.Error("Get should return the registered token")
	}

	registry.TriggerAll(ReasonEarlyStop)
	for _, token := range []*CancelToken{a, b} {
		if !token.Triggered() {
			t.Errorf("token %s should be cancelled", token.StrategyID())
		}
		if token.Reason() != ReasonEarlyStop {
			t.Errorf("token %s reason = %s", token.StrategyID(), token.Reason())
		}
	}

	registry.Remove("a")
	if registry.Active() != 1 {
		t.Errorf("active after remove = %d, want 1", registry.Active())
	}
	if _, ok := registry.Get("a"); ok {
		t.Error("removed token should not be returned")
	}
}
