package flow

import (
	"context"
	"sync"
	"time"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/metrics"
	"github.com/vitwit/subflow/types"
)

// ExecutorState is the lifecycle of one action's submission.
type ExecutorState int

const (
	StateIdle ExecutorState = iota
	StateSubmitting
	StateConfirmed
	StateRejected
	StateFailed
)

func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Executor submits one kind of action and observes its confirmation.
// Submit never returns an error to the caller; failures become classified
// TransactionOutcomes. While submitting, further submissions are no-ops.
type Executor struct {
	action  types.NextAction
	backend clients.Backend
	log     logger.Logger
	rec     metrics.Recorder

	mu    sync.Mutex
	state ExecutorState
}

// NewExecutor builds an executor for one action kind.
func NewExecutor(action types.NextAction, backend clients.Backend, log logger.Logger, rec metrics.Recorder) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Executor{
		action:  action,
		backend: backend,
		log:     log,
		rec:     rec,
		state:   StateIdle,
	}
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() ExecutorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Submitting reports whether a submission is in flight.
func (e *Executor) Submitting() bool {
	return e.State() == StateSubmitting
}

// Reset returns a terminal executor to idle, e.g. after the user dismisses
// an error panel.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateSubmitting {
		e.state = StateIdle
	}
}

// Submit runs the call end to end: broadcast, wait for the receipt, and
// classify the result. The second return is false when the guard made the
// call a no-op (not ready, or already submitting).
func (e *Executor) Submit(ctx context.Context, call clients.Call, ready bool) (types.TransactionOutcome, bool) {
	e.mu.Lock()
	if !ready || e.state == StateSubmitting {
		e.mu.Unlock()
		return types.TransactionOutcome{}, false
	}
	e.state = StateSubmitting
	e.mu.Unlock()

	started := time.Now()
	outcome := e.run(ctx, call)

	e.mu.Lock()
	switch outcome.Kind {
	case types.OutcomeConfirmed:
		e.state = StateConfirmed
	case types.OutcomeRejected:
		e.state = StateIdle
	default:
		e.state = StateIdle
	}
	e.mu.Unlock()

	e.rec.IncCounter("tx_"+string(outcome.Kind), map[string]string{"scope": string(e.action)})
	e.rec.ObserveLatency("submit", time.Since(started), map[string]string{"scope": string(e.action)})
	return outcome, true
}

func (e *Executor) run(ctx context.Context, call clients.Call) types.TransactionOutcome {
	txHash, err := e.backend.SubmitCall(ctx, call)
	if err != nil {
		return e.failure("submission failed", err)
	}

	e.log.Debug("transaction submitted", map[string]any{
		"action": string(e.action),
		"txHash": txHash.Hex(),
	})

	receipt, err := e.backend.WaitForReceipt(ctx, txHash)
	if err != nil {
		out := e.failure("confirmation failed", err)
		out.TxHash = txHash.Hex()
		return out
	}
	if !receipt.Success() {
		e.log.Warn("transaction reverted", map[string]any{
			"action": string(e.action),
			"txHash": txHash.Hex(),
		})
		return types.TransactionOutcome{
			Action:   e.action,
			Kind:     types.OutcomeFailed,
			TxHash:   txHash.Hex(),
			Category: types.CategoryExecutionReverted,
		}
	}

	e.log.Info("transaction confirmed", map[string]any{
		"action":        string(e.action),
		"txHash":        txHash.Hex(),
		"confirmations": receipt.Confirmations,
	})
	return types.TransactionOutcome{
		Action: e.action,
		Kind:   types.OutcomeConfirmed,
		TxHash: txHash.Hex(),
	}
}

func (e *Executor) failure(msg string, err error) types.TransactionOutcome {
	category := clients.Classify(err)
	if category == types.CategoryUserRejected {
		// expected outcome of user choice, not an error
		e.log.Debug("transaction rejected by user", map[string]any{"action": string(e.action)})
		return types.TransactionOutcome{Action: e.action, Kind: types.OutcomeRejected}
	}

	e.log.Error(msg, map[string]any{
		"action":   string(e.action),
		"category": string(category),
		"error":    err.Error(),
	})
	return types.TransactionOutcome{
		Action:   e.action,
		Kind:     types.OutcomeFailed,
		Category: category,
	}
}
