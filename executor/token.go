package executor

import (
	"context"
	"errors"
	"sync"
)

// CancelReason records why a strategy execution was cancelled
type CancelReason string

const (
	ReasonTimeout   CancelReason = "timeout"
	ReasonEarlyStop CancelReason = "early_stop"
)

// ErrAborted is the error every cancelled execution resolves to, regardless
// of how the cancellation was delivered
var ErrAborted = errors.New("execution aborted")

// CancelToken flags one strategy execution for cooperative shutdown. The
// execution core checks it at phase boundaries; work already delegated runs
// to completion unless the delegate honors Context
type CancelToken struct {
	strategyID string
	ctx        context.Context
	cancel     context.CancelFunc
	once       *sync.Once
	reason     CancelReason
	lock       *sync.Mutex
}

// NewCancelToken derives a token from the caller's context, so cancelling
// the parent cancels the strategy too
func NewCancelToken(parent context.Context, strategyID string) *CancelToken {
	ctx, cancel := context.WithCancel(parent)
	return &CancelToken{
		strategyID: strategyID,
		ctx:        ctx,
		cancel:     cancel,
		once:       new(sync.Once),
		lock:       new(sync.Mutex),
	}
}

func (t *CancelToken) StrategyID() string {
	return t.strategyID
}

// Context is handed to phase delegates so context aware work can stop early
func (t *CancelToken) Context() context.Context {
	return t.ctx
}

// Trigger cancels the token. The first reason wins, later calls are no-ops
func (t *CancelToken) Trigger(reason CancelReason) {
	t.once.Do(func() {
		t.lock.Lock()
		t.reason = reason
		t.lock.Unlock()
		t.cancel()
	})
}

// Triggered reports whether the token, or any context above it, is cancelled
func (t *CancelToken) Triggered() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

func (t *CancelToken) Reason() CancelReason {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.reason
}

// Release frees the token's context resources, it is called on every exit
// path of a run
func (t *CancelToken) Release() {
	t.cancel()
}

// Registry tracks the cancellation tokens of in flight strategy executions.
// Inserts and removes are strictly paired so no entry outlives its strategy
type Registry struct {
	tokens map[string]*CancelToken
	lock   *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		tokens: make(map[string]*CancelToken),
		lock:   new(sync.Mutex),
	}
}

func (r *Registry) Register(t *CancelToken) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tokens[t.strategyID] = t
}

func (r *Registry) Remove(strategyID string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.tokens, strategyID)
}

func (r *Registry) Get(strategyID string) (*CancelToken, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	t, ok := r.tokens[strategyID]
	return t, ok
}

func (r *Registry) Active() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.tokens)
}

func (r *Registry) Iter() []*CancelToken {
	r.lock.Lock()
	defer r.lock.Unlock()
	tokens := make([]*CancelToken, len(r.tokens))
	i := 0
	for _, t := range r.tokens {
		tokens[i] = t
		i++
	}
	return tokens
}

// TriggerAll cancels every registered execution with the given reason
func (r *Registry) TriggerAll(reason CancelReason) {
	for _, t := range r.Iter() {
		t.Trigger(reason)
	}
}
