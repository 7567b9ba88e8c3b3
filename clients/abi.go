package clients

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// CallKind tags the one contract call a flow step performs. The set is
// closed: resolving a request against the registry yields one of these,
// there is no runtime ABI dispatch by token name.
type CallKind int

const (
	CallApprove CallKind = iota
	CallDeposit
	CallSubscribe
)

func (k CallKind) String() string {
	switch k {
	case CallApprove:
		return "approve"
	case CallDeposit:
		return "deposit"
	case CallSubscribe:
		return "subscribe"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Call is a fully resolved pending contract call. Only the fields of its
// kind are meaningful.
type Call struct {
	Kind     CallKind
	Contract common.Address

	// approve: spender and amount.
	Spender common.Address
	Amount  *big.Int

	// deposit: amount (shared above) and the permit2 flag.
	IsPermit2 bool

	// subscribe: stream recipient, per-second rate, project id.
	Recipient common.Address
	Rate      *big.Int
	ProjectID *big.Int
}

// Method returns the contract function the call targets.
func (c Call) Method() string {
	return c.Kind.String()
}

// CallData ABI-encodes the call's arguments.
func (c Call) CallData() ([]byte, error) {
	switch c.Kind {
	case CallApprove:
		return erc20ABI.Pack("approve", c.Spender, c.Amount)
	case CallDeposit:
		return protocolABI.Pack("deposit", c.Amount, c.IsPermit2)
	case CallSubscribe:
		projectID := c.ProjectID
		if projectID == nil {
			projectID = big.NewInt(0)
		}
		return protocolABI.Pack("subscribe", c.Recipient, c.Rate, projectID)
	}
	return nil, fmt.Errorf("unknown call kind %d", int(c.Kind))
}

// Key is a value identity for the call, used to decide whether a fee quote
// for it is still current. Two calls with equal keys are the same request
// even when the structs were built separately.
func (c Call) Key() string {
	var b strings.Builder
	b.WriteString(c.Kind.String())
	b.WriteByte('|')
	b.WriteString(c.Contract.Hex())
	b.WriteByte('|')
	b.WriteString(c.Spender.Hex())
	b.WriteByte('|')
	b.WriteString(bigKey(c.Amount))
	b.WriteByte('|')
	if c.IsPermit2 {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('|')
	b.WriteString(c.Recipient.Hex())
	b.WriteByte('|')
	b.WriteString(bigKey(c.Rate))
	b.WriteByte('|')
	b.WriteString(bigKey(c.ProjectID))
	return b.String()
}

func bigKey(n *big.Int) string {
	if n == nil {
		return "-"
	}
	return n.String()
}

// Minimal ABI fragments for the two contract interfaces the flow touches.
const erc20ABIJSON = `
[
  {
    "name": "approve",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "spender", "type": "address" },
      { "name": "amount", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "allowance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "spender", "type": "address" }
    ],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

const protocolABIJSON = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "deposit",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "amount", "type": "uint256" },
      { "name": "isPermit2", "type": "bool" }
    ],
    "outputs": []
  },
  {
    "name": "subscribe",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "author", "type": "address" },
      { "name": "subscriptionRate", "type": "uint96" },
      { "name": "projectId", "type": "uint256" }
    ],
    "outputs": []
  }
]
`

var (
	erc20ABI    = mustParseABI(erc20ABIJSON)
	protocolABI = mustParseABI(protocolABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}
