package flow

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/types"
)

// fakeBackend scripts the submit/receipt path and serves static balances.
type fakeBackend struct {
	mu sync.Mutex

	submitErr  error
	receiptErr error
	reverted   bool

	submitted []clients.Call
}

func (f *fakeBackend) ProtocolBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeBackend) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeBackend) TokenBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeBackend) EstimateGas(context.Context, common.Address, clients.Call) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SubmitCall(_ context.Context, call clients.Call) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	f.submitted = append(f.submitted, call)
	return common.HexToHash("0xabc123"), nil
}

func (f *fakeBackend) WaitForReceipt(_ context.Context, tx common.Hash) (*clients.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	status := uint64(1)
	if f.reverted {
		status = 0
	}
	return &clients.Receipt{TxHash: tx, Status: status, BlockNumber: big.NewInt(100), Confirmations: 1}, nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) Close() {}

func approveCall() clients.Call {
	return clients.Call{
		Kind:     clients.CallApprove,
		Contract: common.HexToAddress("0x01"),
		Spender:  common.HexToAddress("0x02"),
		Amount:   big.NewInt(9_990_000),
	}
}

func TestExecutorConfirmed(t *testing.T) {
	backend := &fakeBackend{}
	exec := NewExecutor(types.ActionApprove, backend, nil, nil)

	outcome, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)
	assert.Equal(t, types.OutcomeConfirmed, outcome.Kind)
	assert.Equal(t, types.ActionApprove, outcome.Action)
	assert.NotEmpty(t, outcome.TxHash)
	assert.Equal(t, StateConfirmed, exec.State())
	assert.Len(t, backend.submitted, 1)
}

func TestExecutorNotReadyIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	exec := NewExecutor(types.ActionApprove, backend, nil, nil)

	_, submitted := exec.Submit(context.Background(), approveCall(), false)
	assert.False(t, submitted)
	assert.Equal(t, StateIdle, exec.State())
	assert.Empty(t, backend.submitted)
}

func TestExecutorUserRejection(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("User rejected the request.")}
	exec := NewExecutor(types.ActionApprove, backend, nil, nil)

	outcome, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)

	// rejection is a silent return to idle, not an error state
	assert.Equal(t, types.OutcomeRejected, outcome.Kind)
	assert.Empty(t, outcome.Category)
	assert.Equal(t, StateIdle, exec.State())
}

func TestExecutorSubmitFailure(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("insufficient funds for gas * price + value")}
	exec := NewExecutor(types.ActionDeposit, backend, nil, nil)

	outcome, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)
	assert.Equal(t, types.OutcomeFailed, outcome.Kind)
	assert.Equal(t, types.CategoryInsufficientFunds, outcome.Category)
}

func TestExecutorReverted(t *testing.T) {
	backend := &fakeBackend{reverted: true}
	exec := NewExecutor(types.ActionSubscribe, backend, nil, nil)

	outcome, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)
	assert.Equal(t, types.OutcomeFailed, outcome.Kind)
	assert.Equal(t, types.CategoryExecutionReverted, outcome.Category)
	assert.NotEmpty(t, outcome.TxHash)
}

func TestExecutorReceiptFailureKeepsHash(t *testing.T) {
	backend := &fakeBackend{receiptErr: errors.New("request timed out")}
	exec := NewExecutor(types.ActionApprove, backend, nil, nil)

	outcome, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)
	assert.Equal(t, types.OutcomeFailed, outcome.Kind)
	assert.Equal(t, types.CategoryTimeout, outcome.Category)
	assert.NotEmpty(t, outcome.TxHash)
}

func TestExecutorReset(t *testing.T) {
	backend := &fakeBackend{}
	exec := NewExecutor(types.ActionApprove, backend, nil, nil)

	_, submitted := exec.Submit(context.Background(), approveCall(), true)
	require.True(t, submitted)
	require.Equal(t, StateConfirmed, exec.State())

	exec.Reset()
	assert.Equal(t, StateIdle, exec.State())
}
