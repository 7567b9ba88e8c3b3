// Package flow derives the next required on-chain action of a subscription
// session from live balances, and runs the executor state machine that
// submits it.
package flow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/rate"
	"github.com/vitwit/subflow/registry"
	"github.com/vitwit/subflow/types"
)

// Derive resolves the request against the registry and computes the flow
// state for the snapshot. Pure and deterministic: identical inputs always
// yield an identical state.
func Derive(req types.SubscriptionRequest, snap types.BalanceSnapshot) (types.FlowState, error) {
	_, token, err := registry.Resolve(req.ChainID, req.TokenSymbol)
	if err != nil {
		return types.FlowState{}, err
	}
	return DeriveForToken(req, token, snap)
}

// DeriveForToken computes the flow state against an already resolved token
// descriptor. Evaluation order is fixed; the first unmet requirement wins,
// so exactly one next action ever holds.
//
// An unknown (nil) balance never satisfies a requirement: unknown protocol
// balance means the full period cost is still owed, and unknown allowance
// means approval is still required.
func DeriveForToken(req types.SubscriptionRequest, token *registry.TokenDescriptor, snap types.BalanceSnapshot) (types.FlowState, error) {
	required, err := types.ParseAmount(req.Cost, token.Decimals)
	if err != nil {
		return types.FlowState{}, err
	}

	deficit := new(big.Int).Set(required)
	if snap.ProtocolBalance != nil {
		deficit.Sub(required, snap.ProtocolBalance)
		if deficit.Sign() < 0 {
			deficit.SetInt64(0)
		}
	}

	state := types.FlowState{
		RequiredDeposit: deficit,
		HasSufficientWalletBalance: snap.WalletBalance != nil &&
			snap.WalletBalance.Cmp(deficit) >= 0,
	}

	if deficit.Sign() > 0 {
		state.NeedsDeposit = true
		if snap.Allowance == nil || snap.Allowance.Cmp(deficit) < 0 {
			state.NextAction = types.ActionApprove
			state.NeedsApproval = true
			state.RequiredApproval = deficit
		} else {
			state.NextAction = types.ActionDeposit
		}
		return state, nil
	}

	state.NextAction = types.ActionSubscribe
	state.CanSubscribe = snap.ProtocolBalance != nil &&
		snap.ProtocolBalance.Cmp(required) >= 0
	return state, nil
}

// BuildCall resolves the derived next action into the concrete contract
// call to estimate and submit.
func BuildCall(req types.SubscriptionRequest, token *registry.TokenDescriptor, state types.FlowState) (clients.Call, error) {
	switch state.NextAction {
	case types.ActionApprove:
		return clients.Call{
			Kind:     clients.CallApprove,
			Contract: token.TokenAddress,
			Spender:  token.ProtocolAddress,
			Amount:   state.RequiredApproval,
		}, nil

	case types.ActionDeposit:
		return clients.Call{
			Kind:      clients.CallDeposit,
			Contract:  token.ProtocolAddress,
			Amount:    state.RequiredDeposit,
			IsPermit2: false,
		}, nil

	case types.ActionSubscribe:
		// The protocol contract takes the rate at 18-decimal precision
		// regardless of the token's own scale.
		scaled, err := types.ParseAmount(req.Cost, 18)
		if err != nil {
			return clients.Call{}, err
		}
		perSecond, err := rate.PerSecond(scaled, req.PayCycle)
		if err != nil {
			return clients.Call{}, err
		}
		return clients.Call{
			Kind:      clients.CallSubscribe,
			Contract:  token.ProtocolAddress,
			Recipient: common.HexToAddress(req.ToAddress),
			Rate:      perSecond,
			ProjectID: big.NewInt(0),
		}, nil
	}

	return clients.Call{}, &types.FlowError{
		Code:    types.ErrNotReady,
		Message: "no pending action to build a call for",
	}
}

// Ready reports whether the state's readiness flag for its own next action
// allows submission. Wallet balance gates the approve and deposit steps;
// subscribe is gated solely by CanSubscribe.
func Ready(state types.FlowState) bool {
	switch state.NextAction {
	case types.ActionApprove:
		return state.NeedsApproval && state.HasSufficientWalletBalance
	case types.ActionDeposit:
		return state.NeedsDeposit && state.HasSufficientWalletBalance
	case types.ActionSubscribe:
		return state.CanSubscribe
	}
	return false
}
