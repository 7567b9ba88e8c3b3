// Package reader polls the three on-chain quantities a subscription flow
// depends on: protocol-held balance, token allowance, and wallet balance.
// Polling is an explicit subscription with a stop handle; nothing keeps
// ticking after the owning session closes.
package reader

import (
	"context"
	"math/big"
	"sync"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/metrics"
	"github.com/vitwit/subflow/registry"
	"github.com/vitwit/subflow/types"
)

// ContractReader is the read-only slice of the chain backend the poller
// consumes.
type ContractReader interface {
	ProtocolBalance(ctx context.Context, protocol, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Reader polls balances for one (token, account) pair. Each of the three
// reads fails independently: a transient error leaves that field unknown
// in the next snapshot without discarding the other two.
type Reader struct {
	backend  ContractReader
	token    *registry.TokenDescriptor
	account  common.Address
	interval time.Duration

	log logger.Logger
	rec metrics.Recorder

	onChange func(types.BalanceSnapshot)

	mu   sync.RWMutex
	snap types.BalanceSnapshot

	refreshCh chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a reader for one token/account pair. onChange may be nil;
// when set, it is invoked from the polling goroutine whenever the snapshot
// changes by value.
func New(backend ContractReader, token *registry.TokenDescriptor, account common.Address, interval time.Duration, log logger.Logger, rec metrics.Recorder, onChange func(types.BalanceSnapshot)) *Reader {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Reader{
		backend:   backend,
		token:     token,
		account:   account,
		interval:  interval,
		log:       log,
		rec:       rec,
		onChange:  onChange,
		refreshCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start begins polling until Stop is called or ctx ends. Subsequent calls
// are no-ops.
func (r *Reader) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		pollCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		go r.loop(pollCtx)
	})
}

// Stop cancels polling. In-flight reads for this reader are abandoned and
// can no longer overwrite the snapshot.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
}

// Done is closed once the polling goroutine has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns the most recent completed snapshot.
func (r *Reader) Snapshot() types.BalanceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh schedules an immediate re-read, coalescing with one already
// pending. Used after a transaction confirms.
func (r *Reader) Refresh() {
	select {
	case r.refreshCh <- struct{}{}:
	default:
	}
}

func (r *Reader) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// first read immediately rather than one interval in
	r.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.refreshCh:
			r.poll(ctx)
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

func (r *Reader) poll(ctx context.Context) {
	started := time.Now()

	snap := types.BalanceSnapshot{
		ProtocolBalance: r.read(ctx, "protocol_balance", func(c context.Context) (*big.Int, error) {
			return r.backend.ProtocolBalance(c, r.token.ProtocolAddress, r.account)
		}),
		Allowance: r.read(ctx, "allowance", func(c context.Context) (*big.Int, error) {
			return r.backend.Allowance(c, r.token.TokenAddress, r.account, r.token.ProtocolAddress)
		}),
		WalletBalance: r.read(ctx, "wallet_balance", func(c context.Context) (*big.Int, error) {
			return r.backend.TokenBalance(c, r.token.TokenAddress, r.account)
		}),
	}

	// a cancelled reader must not overwrite current state
	if ctx.Err() != nil {
		return
	}

	r.rec.ObserveLatency("balance_poll", time.Since(started), map[string]string{"scope": r.token.Symbol})

	r.mu.Lock()
	changed := !r.snap.Equal(snap)
	r.snap = snap
	r.mu.Unlock()

	if changed && r.onChange != nil {
		r.onChange(snap)
	}
}

// read performs one balance query with a short retry. On failure the field
// is reported unknown (nil), never zero.
func (r *Reader) read(ctx context.Context, name string, fn func(context.Context) (*big.Int, error)) *big.Int {
	var out *big.Int
	err := retry.Do(func() error {
		value, err := fn(ctx)
		if err != nil {
			return err
		}
		out = value
		return nil
	}, retry.Attempts(2), retry.Delay(50*time.Millisecond), retry.Context(ctx), retry.LastErrorOnly(true))
	if err != nil {
		r.rec.IncCounter("balance_read_failed", map[string]string{"scope": name})
		r.log.Debug("balance read failed", map[string]any{"field": name, "error": err.Error()})
		return nil
	}
	return out
}
