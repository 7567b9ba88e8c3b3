// Package subflow orchestrates the approve, deposit and subscribe flow of
// a streaming-payment subscription on EVM chains. A Session owns one
// subscription request for one account: it polls the balances the flow
// depends on, derives the single next required action, quotes its network
// fee, and submits it through a guarded executor.
package subflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/fees"
	"github.com/vitwit/subflow/flow"
	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/metrics"
	"github.com/vitwit/subflow/quotes"
	"github.com/vitwit/subflow/reader"
	"github.com/vitwit/subflow/registry"
	"github.com/vitwit/subflow/types"
)

// Update is delivered to the session's OnUpdate callback whenever the
// derived state changes.
type Update struct {
	Phase    types.SessionPhase
	State    types.FlowState
	Balances types.BalanceSnapshot
}

// Session is one account's run of the subscription flow. All state is held
// on the session; two sessions never share anything but the collaborators
// passed into New.
type Session struct {
	req     types.SubscriptionRequest
	network *registry.NetworkDescriptor
	token   *registry.TokenDescriptor
	account common.Address

	backend clients.Backend
	reader  *reader.Reader
	fees    *fees.Estimator

	gasPricer    quotes.GasPricer
	tokenPricer  quotes.TokenPricer
	feeMemoTTL   time.Duration
	pollInterval time.Duration

	executors map[types.NextAction]*flow.Executor

	log logger.Logger
	rec metrics.Recorder

	onUpdate func(Update)

	mu        sync.RWMutex
	state     types.FlowState
	phase     types.SessionPhase
	lastError *types.FlowError
	outcome   *types.TransactionOutcome
	closed    bool
}

// New validates and resolves the request and assembles a session around
// the given wallet and chain backend. The session does not poll until
// Start is called.
func New(req types.SubscriptionRequest, wallet clients.Wallet, backend clients.Backend, cfg types.Config, opts ...Option) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, &types.FlowError{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid subscription request: %v", err),
		}
	}

	network, token, err := registry.Resolve(req.ChainID, req.TokenSymbol)
	if err != nil {
		return nil, err
	}

	account, ok := wallet.AccountAddress()
	if !ok {
		return nil, &types.FlowError{
			Code:    types.ErrInvalidRequest,
			Message: "no connected account",
		}
	}
	if chain, ok := wallet.ChainID(); ok && chain != req.ChainID {
		return nil, &types.FlowError{
			Code:     types.ErrInvalidRequest,
			Message:  fmt.Sprintf("wallet is on chain %d, request targets %d", chain, req.ChainID),
			Category: types.CategoryWrongChain,
		}
	}

	s := &Session{
		req:     req,
		network: network,
		token:   token,
		account: account,
		backend: backend,
		phase:   types.PhaseFlow,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.NewZapLogger(cfg.LogLevel)
	}
	if s.rec == nil {
		s.rec = metrics.NoopRecorder{}
	}

	if s.gasPricer == nil || s.tokenPricer == nil {
		qc := quotes.NewClient(cfg, s.log)
		s.gasPricer, s.tokenPricer = qc, qc
	}
	if s.feeMemoTTL <= 0 {
		s.feeMemoTTL = cfg.GasQuoteTTL
	}
	s.fees = fees.NewEstimator(backend, s.gasPricer, s.tokenPricer, s.feeMemoTTL, s.log, s.rec)

	if s.pollInterval <= 0 {
		s.pollInterval = cfg.PollInterval
	}
	s.reader = reader.New(backend, token, account, s.pollInterval, s.log, s.rec, s.recompute)

	s.executors = map[types.NextAction]*flow.Executor{
		types.ActionApprove:   flow.NewExecutor(types.ActionApprove, backend, s.log, s.rec),
		types.ActionDeposit:   flow.NewExecutor(types.ActionDeposit, backend, s.log, s.rec),
		types.ActionSubscribe: flow.NewExecutor(types.ActionSubscribe, backend, s.log, s.rec),
	}

	// before the first poll completes everything is unknown, so the
	// derived state starts at the full-deficit approve step
	initial, err := flow.DeriveForToken(req, token, types.BalanceSnapshot{})
	if err != nil {
		return nil, err
	}
	s.state = initial

	s.log.Info("session created", map[string]any{
		"network": network.Name,
		"token":   token.Symbol,
		"account": account.Hex(),
		"cycle":   string(req.PayCycle),
	})
	return s, nil
}

// Start begins balance polling. The session keeps polling until Close is
// called or ctx ends.
func (s *Session) Start(ctx context.Context) {
	s.reader.Start(ctx)
}

// Close stops polling and releases the chain backend. The session is
// unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.reader.Stop()
	s.backend.Close()
}

// recompute re-derives the flow state from a fresh snapshot. Invoked from
// the reader's polling goroutine on every snapshot change.
func (s *Session) recompute(snap types.BalanceSnapshot) {
	state, err := flow.DeriveForToken(s.req, s.token, snap)
	if err != nil {
		s.log.Error("flow derivation failed", map[string]any{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if s.closed || s.phase == types.PhaseSuccess {
		s.mu.Unlock()
		return
	}
	if s.state.NextAction != state.NextAction {
		s.log.Debug("next action changed", map[string]any{
			"from": string(s.state.NextAction),
			"to":   string(state.NextAction),
		})
	}
	s.state = state
	update := Update{Phase: s.phase, State: state, Balances: snap}
	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(update)
	}
}

// Phase reports which of the mutually exclusive session states holds.
func (s *Session) Phase() types.SessionPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// FlowState returns the currently derived state.
func (s *Session) FlowState() types.FlowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Balances returns the most recent completed snapshot.
func (s *Session) Balances() types.BalanceSnapshot {
	return s.reader.Snapshot()
}

// LastError returns the error behind the error phase, nil otherwise.
func (s *Session) LastError() *types.FlowError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// LastOutcome returns the outcome of the most recent submission, nil if
// nothing has been submitted yet.
func (s *Session) LastOutcome() *types.TransactionOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// Refresh schedules an immediate balance re-read.
func (s *Session) Refresh() {
	s.reader.Refresh()
}

// FeeQuote estimates the network fee of the pending action. It never
// fails; with no pending action, or before the flow is ready, the zero
// quote is returned. Quotes are memoized by the value of the underlying
// call, so a changed next action never serves a stale quote.
func (s *Session) FeeQuote(ctx context.Context) types.FeeQuote {
	s.mu.RLock()
	state := s.state
	closed := s.closed
	s.mu.RUnlock()

	if closed || state.NextAction == types.ActionNone {
		return fees.ZeroQuote(s.network.NativeSymbol)
	}

	call, err := flow.BuildCall(s.req, s.token, state)
	if err != nil {
		return fees.ZeroQuote(s.network.NativeSymbol)
	}
	return s.fees.Estimate(ctx, s.network, s.account, call)
}

// SubmitNextAction submits the currently required action and blocks until
// it confirms or fails. The second return is false when nothing was
// submitted: the session is closed, the flow is not ready, or a submission
// is already in flight.
//
// A confirmed subscribe moves the session to the success phase. A failed
// transaction moves it to the error phase; a user rejection returns the
// session to the flow phase untouched.
func (s *Session) SubmitNextAction(ctx context.Context) (types.TransactionOutcome, bool) {
	s.mu.RLock()
	state := s.state
	blocked := s.closed || s.phase != types.PhaseFlow
	s.mu.RUnlock()

	if blocked {
		return types.TransactionOutcome{}, false
	}

	exec, ok := s.executors[state.NextAction]
	if !ok {
		return types.TransactionOutcome{}, false
	}

	call, err := flow.BuildCall(s.req, s.token, state)
	if err != nil {
		s.fail(&types.FlowError{
			Code:     types.ErrNotReady,
			Message:  err.Error(),
			Category: clients.Classify(err),
		})
		return types.TransactionOutcome{}, false
	}

	outcome, submitted := exec.Submit(ctx, call, flow.Ready(state))
	if !submitted {
		return types.TransactionOutcome{}, false
	}

	s.settle(state.NextAction, outcome)
	return outcome, true
}

// settle folds a submission outcome into the session phase.
func (s *Session) settle(action types.NextAction, outcome types.TransactionOutcome) {
	s.mu.Lock()
	s.outcome = &outcome

	switch outcome.Kind {
	case types.OutcomeConfirmed:
		if action == types.ActionSubscribe {
			s.phase = types.PhaseSuccess
			s.state.NextAction = types.ActionNone
		}
	case types.OutcomeFailed:
		s.phase = types.PhaseError
		s.lastError = &types.FlowError{
			Code:     types.ErrNetworkError,
			Message:  outcome.Category.Title(),
			Category: outcome.Category,
		}
	case types.OutcomeRejected:
		// user choice, not an error; flow phase stands
	}

	update := Update{Phase: s.phase, State: s.state, Balances: s.reader.Snapshot()}
	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(update)
	}

	if outcome.Kind == types.OutcomeConfirmed {
		// balances moved on-chain; pick up the next step right away
		s.reader.Refresh()
	}
}

func (s *Session) fail(ferr *types.FlowError) {
	s.mu.Lock()
	s.phase = types.PhaseError
	s.lastError = ferr
	cb := s.onUpdate
	update := Update{Phase: s.phase, State: s.state, Balances: s.reader.Snapshot()}
	s.mu.Unlock()

	s.log.Error("session error", map[string]any{
		"code":     ferr.Code,
		"category": string(ferr.Category),
		"message":  ferr.Message,
	})
	if cb != nil {
		cb(update)
	}
}

// DismissError leaves the error phase and returns the executors to idle,
// so the flow can be retried.
func (s *Session) DismissError() {
	s.mu.Lock()
	if s.phase == types.PhaseError {
		s.phase = types.PhaseFlow
		s.lastError = nil
	}
	s.mu.Unlock()

	for _, exec := range s.executors {
		exec.Reset()
	}
	s.reader.Refresh()
}

// Version of the library.
const Version = "1.0.0"
