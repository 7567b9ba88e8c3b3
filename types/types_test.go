package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		expect   string
		wantErr  bool
	}{
		{name: "usdc six decimals", amount: "9.99", decimals: 6, expect: "9990000"},
		{name: "eighteen decimals", amount: "9.99", decimals: 18, expect: "9990000000000000000"},
		{name: "integer", amount: "5", decimals: 6, expect: "5000000"},
		{name: "zero", amount: "0", decimals: 6, expect: "0"},
		{name: "sub precision truncates", amount: "0.0000009", decimals: 6, expect: "0"},
		{name: "empty", amount: "", decimals: 6, wantErr: true},
		{name: "garbage", amount: "nine ninety nine", decimals: 6, wantErr: true},
		{name: "negative", amount: "-1", decimals: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.amount, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got.String())
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "9.99", FormatAmount(big.NewInt(9990000), 6))
	assert.Equal(t, "0", FormatAmount(nil, 6))
}

func TestSubscriptionRequestValidate(t *testing.T) {
	valid := SubscriptionRequest{
		ToAddress:   "0x1c3E45F2D9Dd65ceb6a644A646337015119952ff",
		Cost:        "9.99",
		ChainID:     1,
		TokenSymbol: "USDC",
		PayCycle:    CycleMonthly,
	}
	require.NoError(t, valid.Validate())

	t.Run("bad address", func(t *testing.T) {
		r := valid
		r.ToAddress = "not-an-address"
		assert.Error(t, r.Validate())
	})

	t.Run("bad cycle", func(t *testing.T) {
		r := valid
		r.PayCycle = "hourly"
		err := r.Validate()
		require.Error(t, err)
		var ferr *FlowError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, ErrUnsupportedCycle, ferr.Code)
	})

	t.Run("bad cost", func(t *testing.T) {
		r := valid
		r.Cost = "free"
		assert.Error(t, r.Validate())
	})

	t.Run("missing chain", func(t *testing.T) {
		r := valid
		r.ChainID = 0
		assert.Error(t, r.Validate())
	})
}

func TestBalanceSnapshotKnown(t *testing.T) {
	assert.False(t, BalanceSnapshot{}.Known())
	assert.False(t, BalanceSnapshot{
		ProtocolBalance: big.NewInt(1),
		Allowance:       big.NewInt(1),
	}.Known())
	assert.True(t, BalanceSnapshot{
		ProtocolBalance: big.NewInt(0),
		Allowance:       big.NewInt(0),
		WalletBalance:   big.NewInt(0),
	}.Known())
}

func TestBalanceSnapshotEqual(t *testing.T) {
	a := BalanceSnapshot{ProtocolBalance: big.NewInt(5), Allowance: big.NewInt(1), WalletBalance: big.NewInt(7)}
	b := BalanceSnapshot{ProtocolBalance: big.NewInt(5), Allowance: big.NewInt(1), WalletBalance: big.NewInt(7)}
	assert.True(t, a.Equal(b))

	// nil is unknown, not zero
	c := BalanceSnapshot{ProtocolBalance: nil, Allowance: big.NewInt(1), WalletBalance: big.NewInt(7)}
	d := BalanceSnapshot{ProtocolBalance: big.NewInt(0), Allowance: big.NewInt(1), WalletBalance: big.NewInt(7)}
	assert.False(t, c.Equal(d))
	assert.True(t, c.Equal(BalanceSnapshot{Allowance: big.NewInt(1), WalletBalance: big.NewInt(7)}))
}

func TestErrorCategoryTitle(t *testing.T) {
	assert.Equal(t, "Request rejected", CategoryUserRejected.Title())
	assert.Equal(t, "Insufficient funds", CategoryInsufficientFunds.Title())
	assert.Equal(t, "Something went wrong", ErrorCategory("no-such-category").Title())
}
