package fees

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/registry"
)

type fakeChain struct {
	gas   uint64
	err   error
	calls atomic.Int64
}

func (f *fakeChain) EstimateGas(context.Context, common.Address, clients.Call) (uint64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.gas, nil
}

type fakeGasPricer struct {
	wei *big.Int
	err error
}

func (f *fakeGasPricer) GasPrice(context.Context, int64) (*big.Int, error) {
	return f.wei, f.err
}

type fakeTokenPricer struct {
	usd decimal.Decimal
	err error
}

func (f *fakeTokenPricer) TokenPrice(context.Context, string) (decimal.Decimal, error) {
	return f.usd, f.err
}

func ethereumNetwork(t *testing.T) *registry.NetworkDescriptor {
	t.Helper()
	network, ok := registry.Network(1)
	require.True(t, ok)
	return network
}

func testCall() clients.Call {
	return clients.Call{
		Kind:     clients.CallApprove,
		Contract: common.HexToAddress("0x01"),
		Spender:  common.HexToAddress("0x02"),
		Amount:   big.NewInt(9_990_000),
	}
}

func TestEstimate(t *testing.T) {
	chain := &fakeChain{gas: 21000}
	// 1 gwei
	gas := &fakeGasPricer{wei: big.NewInt(1_000_000_000)}
	price := &fakeTokenPricer{usd: decimal.NewFromInt(3000)}

	est := NewEstimator(chain, gas, price, time.Minute, nil, nil)
	quote := est.Estimate(context.Background(), ethereumNetwork(t), common.HexToAddress("0xaa"), testCall())

	// 21000 * 1 gwei = 0.000021 ETH, at $3000 about seven cents
	assert.Equal(t, "0.000021000000 ETH", quote.Fee)
	assert.Equal(t, "(~$0.06)", quote.USDValue)
}

func TestEstimateGasFailureDegradesToZero(t *testing.T) {
	chain := &fakeChain{err: errors.New("execution reverted")}
	est := NewEstimator(chain, &fakeGasPricer{wei: big.NewInt(1)}, &fakeTokenPricer{}, time.Minute, nil, nil)

	quote := est.Estimate(context.Background(), ethereumNetwork(t), common.HexToAddress("0xaa"), testCall())
	assert.Equal(t, "0.000000000000 ETH", quote.Fee)
	assert.Equal(t, "($0.00)", quote.USDValue)
}

func TestEstimateGasPriceFailureDegradesToZero(t *testing.T) {
	chain := &fakeChain{gas: 21000}
	gas := &fakeGasPricer{err: errors.New("connection refused")}
	est := NewEstimator(chain, gas, &fakeTokenPricer{}, time.Minute, nil, nil)

	quote := est.Estimate(context.Background(), ethereumNetwork(t), common.HexToAddress("0xaa"), testCall())
	assert.Equal(t, ZeroQuote("ETH"), quote)
}

func TestEstimateUSDFailureKeepsNativeFee(t *testing.T) {
	chain := &fakeChain{gas: 21000}
	gas := &fakeGasPricer{wei: big.NewInt(1_000_000_000)}
	price := &fakeTokenPricer{err: errors.New("rate limited")}

	est := NewEstimator(chain, gas, price, time.Minute, nil, nil)
	quote := est.Estimate(context.Background(), ethereumNetwork(t), common.HexToAddress("0xaa"), testCall())

	// native amount survives a dead price oracle
	assert.Equal(t, "0.000021000000 ETH", quote.Fee)
	assert.Equal(t, "(~$0.00)", quote.USDValue)
}

func TestEstimateMemoizesByCallValue(t *testing.T) {
	chain := &fakeChain{gas: 21000}
	gas := &fakeGasPricer{wei: big.NewInt(1_000_000_000)}
	price := &fakeTokenPricer{usd: decimal.NewFromInt(3000)}
	est := NewEstimator(chain, gas, price, time.Minute, nil, nil)

	network := ethereumNetwork(t)
	from := common.HexToAddress("0xaa")

	first := est.Estimate(context.Background(), network, from, testCall())
	second := est.Estimate(context.Background(), network, from, testCall())
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), chain.calls.Load(), "equal calls must not re-estimate")

	// a different amount is a different request
	changed := testCall()
	changed.Amount = big.NewInt(1)
	est.Estimate(context.Background(), network, from, changed)
	assert.Equal(t, int64(2), chain.calls.Load())
}

func TestZeroQuote(t *testing.T) {
	quote := ZeroQuote("POL")
	assert.Equal(t, "0.000000000000 POL", quote.Fee)
	assert.Equal(t, "($0.00)", quote.USDValue)
}
