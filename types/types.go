package types

import (
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
)

// PayCycle is the billing period of a subscription.
type PayCycle string

const (
	CycleDaily   PayCycle = "daily"
	CycleWeekly  PayCycle = "weekly"
	CycleMonthly PayCycle = "monthly"
	CycleYearly  PayCycle = "yearly"
)

func (c PayCycle) Valid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleYearly:
		return true
	}
	return false
}

func (c PayCycle) String() string {
	return string(c)
}

// SubscriptionRequest is the immutable input of a widget session: who gets
// paid, how much per cycle, and on which chain/token. Created once from
// caller configuration and never mutated afterwards.
type SubscriptionRequest struct {
	// Recipient of the payment stream.
	ToAddress string `json:"toAddress" validate:"required,eth_addr"`

	// Cost per pay cycle as a human decimal string (e.g. "9.99").
	Cost string `json:"cost" validate:"required"`

	ChainID     int64    `json:"chainId" validate:"required"`
	TokenSymbol string   `json:"token" validate:"required"`
	PayCycle    PayCycle `json:"payCycle" validate:"required"`
}

var validate = validator.New()

// Validate checks the request fields plus the cross-field rules the
// struct tags cannot express.
func (r *SubscriptionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !r.PayCycle.Valid() {
		return &FlowError{Code: ErrUnsupportedCycle, Message: fmt.Sprintf("unsupported pay cycle: %q", r.PayCycle)}
	}
	if _, err := ParseAmount(r.Cost, 0); err != nil {
		return fmt.Errorf("invalid cost: %w", err)
	}
	return nil
}

// NextAction is the single operation the flow requires next.
type NextAction string

const (
	ActionApprove   NextAction = "approve"
	ActionDeposit   NextAction = "deposit"
	ActionSubscribe NextAction = "subscribe"
	ActionNone      NextAction = "none"
)

// BalanceSnapshot holds the three on-chain quantities the flow derivation
// depends on, scaled to the token's decimals. A nil field means the read
// failed or has not completed yet; unknown is never folded into zero.
type BalanceSnapshot struct {
	// Funds the account holds inside the streaming protocol.
	ProtocolBalance *big.Int

	// ERC-20 allowance granted by the account to the protocol contract.
	Allowance *big.Int

	// Plain ERC-20 balance of the account's wallet.
	WalletBalance *big.Int
}

// Known reports whether every field of the snapshot has been read.
func (s BalanceSnapshot) Known() bool {
	return s.ProtocolBalance != nil && s.Allowance != nil && s.WalletBalance != nil
}

// Equal compares two snapshots by value, treating nil as unknown.
func (s BalanceSnapshot) Equal(o BalanceSnapshot) bool {
	return bigEqual(s.ProtocolBalance, o.ProtocolBalance) &&
		bigEqual(s.Allowance, o.Allowance) &&
		bigEqual(s.WalletBalance, o.WalletBalance)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// FlowState is derived from a SubscriptionRequest and the latest
// BalanceSnapshot. It is recomputed on every snapshot change and never
// persisted. Exactly one NextAction holds at any time.
type FlowState struct {
	NextAction NextAction

	// Allowance still missing before a deposit can go through.
	RequiredApproval *big.Int

	// Protocol-balance deficit for one billing period.
	RequiredDeposit *big.Int

	NeedsApproval bool
	NeedsDeposit  bool

	// CanSubscribe is the sole gate for the final action: true only when
	// the protocol balance is known and covers one period.
	CanSubscribe bool

	// HasSufficientWalletBalance gates submission of the approve/deposit
	// step. It never changes NextAction.
	HasSufficientWalletBalance bool
}

// FeeQuote is a display-ready estimate of the network fee for the pending
// action. Stale quotes are discarded when NextAction changes.
type FeeQuote struct {
	// e.g. "0.000021000000 ETH"
	Fee string `json:"fee"`

	// e.g. "(~$0.07)", or "($0.00)" for the degraded zero quote.
	USDValue string `json:"usdValue"`
}

// OutcomeKind is the terminal result of one submitted transaction.
type OutcomeKind string

const (
	OutcomeConfirmed OutcomeKind = "confirmed"
	OutcomeRejected  OutcomeKind = "rejectedByUser"
	OutcomeFailed    OutcomeKind = "failed"
)

// TransactionOutcome reports how a submitted action ended. Category is set
// only for failed outcomes.
type TransactionOutcome struct {
	Action   NextAction
	Kind     OutcomeKind
	TxHash   string
	Category ErrorCategory
}

// SessionPhase selects which of the mutually exclusive body states a
// consuming UI should render.
type SessionPhase string

const (
	PhaseFlow    SessionPhase = "flow"
	PhaseError   SessionPhase = "error"
	PhaseSuccess SessionPhase = "success"
)
