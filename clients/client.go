// Package clients wraps the on-chain collaborators of a subscription
// session: read-only balance queries, gas estimation, transaction
// submission, and receipt confirmation.
package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is the confirmation status of a submitted transaction.
type Receipt struct {
	TxHash        common.Hash
	Status        uint64
	BlockNumber   *big.Int
	Confirmations uint64
}

// Success reports whether the transaction executed without reverting.
func (r *Receipt) Success() bool {
	return r != nil && r.Status == 1
}

// Backend is the chain collaborator a session consumes. The library never
// owns the wallet handshake; implementations decide how writes get signed.
type Backend interface {
	// ProtocolBalance reads the account's balance held by the streaming
	// protocol contract.
	ProtocolBalance(ctx context.Context, protocol, account common.Address) (*big.Int, error)

	// Allowance reads the ERC-20 allowance owner has granted to spender.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)

	// TokenBalance reads the plain ERC-20 balance of owner.
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// EstimateGas simulates the call against current chain state and
	// returns the gas units it would consume.
	EstimateGas(ctx context.Context, from common.Address, call Call) (uint64, error)

	// SubmitCall signs and broadcasts the call, returning its hash.
	// Confirmation is observed separately via WaitForReceipt.
	SubmitCall(ctx context.Context, call Call) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is mined or ctx ends.
	WaitForReceipt(ctx context.Context, tx common.Hash) (*Receipt, error)

	ChainID(ctx context.Context) (*big.Int, error)

	Close()
}

// Wallet reports the connected account. Nothing is returned while no wallet
// is connected; callers must treat that as "unknown", not as a zero value.
type Wallet interface {
	AccountAddress() (common.Address, bool)
	ChainID() (int64, bool)
}

// StaticWallet is a fixed account/chain pair, useful for servers and tests
// where the signer identity is known up front.
type StaticWallet struct {
	Account common.Address
	Chain   int64
}

func (w StaticWallet) AccountAddress() (common.Address, bool) {
	return w.Account, w.Account != (common.Address{})
}

func (w StaticWallet) ChainID() (int64, bool) {
	return w.Chain, w.Chain != 0
}
