package clients

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallData(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		call := Call{
			Kind:     CallApprove,
			Contract: common.HexToAddress("0x01"),
			Spender:  common.HexToAddress("0x02"),
			Amount:   big.NewInt(9_990_000),
		}
		data, err := call.CallData()
		require.NoError(t, err)
		// 4-byte selector plus two 32-byte words
		assert.Len(t, data, 4+64)
		assert.Equal(t, "approve", call.Method())
	})

	t.Run("deposit", func(t *testing.T) {
		call := Call{
			Kind:     CallDeposit,
			Contract: common.HexToAddress("0x03"),
			Amount:   big.NewInt(9_990_000),
		}
		data, err := call.CallData()
		require.NoError(t, err)
		assert.Len(t, data, 4+64)
	})

	t.Run("subscribe defaults project id", func(t *testing.T) {
		call := Call{
			Kind:      CallSubscribe,
			Contract:  common.HexToAddress("0x03"),
			Recipient: common.HexToAddress("0x04"),
			Rate:      big.NewInt(3854),
		}
		data, err := call.CallData()
		require.NoError(t, err)
		assert.Len(t, data, 4+96)
	})

	t.Run("unknown kind", func(t *testing.T) {
		call := Call{Kind: CallKind(42)}
		_, err := call.CallData()
		assert.Error(t, err)
	})
}

func TestCallKey(t *testing.T) {
	base := Call{
		Kind:     CallApprove,
		Contract: common.HexToAddress("0x01"),
		Spender:  common.HexToAddress("0x02"),
		Amount:   big.NewInt(100),
	}

	// equal by value even when built separately
	same := Call{
		Kind:     CallApprove,
		Contract: common.HexToAddress("0x01"),
		Spender:  common.HexToAddress("0x02"),
		Amount:   big.NewInt(100),
	}
	assert.Equal(t, base.Key(), same.Key())

	changedAmount := base
	changedAmount.Amount = big.NewInt(101)
	assert.NotEqual(t, base.Key(), changedAmount.Key())

	changedKind := base
	changedKind.Kind = CallDeposit
	assert.NotEqual(t, base.Key(), changedKind.Key())

	// nil amounts have a distinct identity from zero
	nilAmount := base
	nilAmount.Amount = nil
	zeroAmount := base
	zeroAmount.Amount = big.NewInt(0)
	assert.NotEqual(t, nilAmount.Key(), zeroAmount.Key())
}
