// Package rate converts periodic subscription costs into the per-second
// streaming rates the protocol contract consumes.
package rate

import (
	"fmt"
	"math/big"

	"github.com/vitwit/subflow/types"
)

// Seconds per billing cycle. Monthly is fixed at 30 days, yearly at 365.
var cycleSeconds = map[types.PayCycle]int64{
	types.CycleDaily:   86400,
	types.CycleWeekly:  604800,
	types.CycleMonthly: 2592000,
	types.CycleYearly:  31536000,
}

// PerSecond turns a cost per cycle into a per-second rate. The cost must
// already be scaled to the token's full precision; division truncates
// toward zero, so rate*duration may undershoot the original cost.
func PerSecond(scaledCost *big.Int, cycle types.PayCycle) (*big.Int, error) {
	secs, ok := cycleSeconds[cycle]
	if !ok {
		return nil, &types.FlowError{
			Code:    types.ErrUnsupportedCycle,
			Message: fmt.Sprintf("unsupported pay cycle: %q", cycle),
		}
	}
	return new(big.Int).Quo(scaledCost, big.NewInt(secs)), nil
}

// PerPeriod is the display-side inverse of PerSecond: the amount a given
// per-second rate streams over one cycle.
func PerPeriod(perSecond *big.Int, cycle types.PayCycle) (*big.Int, error) {
	secs, ok := cycleSeconds[cycle]
	if !ok {
		return nil, &types.FlowError{
			Code:    types.ErrUnsupportedCycle,
			Message: fmt.Sprintf("unsupported pay cycle: %q", cycle),
		}
	}
	return new(big.Int).Mul(perSecond, big.NewInt(secs)), nil
}

// CycleSeconds reports the duration of a cycle in seconds.
func CycleSeconds(cycle types.PayCycle) (int64, bool) {
	secs, ok := cycleSeconds[cycle]
	return secs, ok
}
