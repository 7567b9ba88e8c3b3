package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human decimal string into an unsigned fixed-point
// integer scaled by the given number of decimals ("9.99" at 6 decimals is
// 9990000). Sub-precision digits are truncated, never rounded up.
func ParseAmount(amount string, decimals int32) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return dec.Shift(decimals).Truncate(0).BigInt(), nil
}

// FormatAmount renders a scaled integer back to a decimal string.
func FormatAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// FormatFixed renders a scaled integer with a fixed number of fraction
// digits, the way fee amounts are displayed.
func FormatFixed(amount *big.Int, decimals int32, places int32) string {
	if amount == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(places)
}
