package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/subflow/types"
)

var _ Backend = (*EVMClient)(nil)

// EVMClient implements Backend over a go-ethereum RPC connection. Reads,
// gas estimation and receipt lookups work with a bare RPC endpoint; writes
// additionally need a signing key.
type EVMClient struct {
	rpcURL  string
	chainID *big.Int
	client  *ethclient.Client

	// nil for read-only sessions; SubmitCall then fails.
	key  *ecdsa.PrivateKey
	from common.Address

	receiptPollInterval time.Duration
}

// NewEVMClient connects to an RPC endpoint for reads, estimation, and
// receipt confirmation.
func NewEVMClient(rpcURL string, chainID int64) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return &EVMClient{
		rpcURL:              rpcURL,
		chainID:             big.NewInt(chainID),
		client:              client,
		receiptPollInterval: time.Second,
	}, nil
}

// NewSigningEVMClient additionally loads a hex private key so SubmitCall
// can sign and broadcast transactions.
func NewSigningEVMClient(rpcURL string, chainID int64, hexKey string) (*EVMClient, error) {
	c, err := NewEVMClient(rpcURL, chainID)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	c.key = key
	c.from = crypto.PubkeyToAddress(key.PublicKey)
	return c, nil
}

// From returns the signing account, zero when the client is read-only.
func (e *EVMClient) From() common.Address {
	return e.from
}

func (e *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	return e.client.ChainID(ctx)
}

func (e *EVMClient) Close() {
	e.client.Close()
}

// ProtocolBalance implements Backend.
func (e *EVMClient) ProtocolBalance(ctx context.Context, protocol, account common.Address) (*big.Int, error) {
	return e.readUint256(ctx, protocol, protocolABI, "balanceOf", account)
}

// Allowance implements Backend.
func (e *EVMClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return e.readUint256(ctx, token, erc20ABI, "allowance", owner, spender)
}

// TokenBalance implements Backend.
func (e *EVMClient) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return e.readUint256(ctx, token, erc20ABI, "balanceOf", owner)
}

func (e *EVMClient) readUint256(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s output arity %d", method, len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, values[0])
	}
	return value, nil
}

// EstimateGas implements Backend.
func (e *EVMClient) EstimateGas(ctx context.Context, from common.Address, call Call) (uint64, error) {
	data, err := call.CallData()
	if err != nil {
		return 0, err
	}

	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &call.Contract,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("estimate %s: %w", call.Method(), err)
	}
	return gas, nil
}

// SubmitCall implements Backend: builds a dynamic-fee transaction for the
// call, signs it with the session key, and broadcasts it.
func (e *EVMClient) SubmitCall(ctx context.Context, call Call) (common.Hash, error) {
	if e.key == nil {
		return common.Hash{}, &types.FlowError{
			Code:    types.ErrNotReady,
			Message: "client has no signing key",
		}
	}

	data, err := call.CallData()
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("head: %w", err)
	}
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("tip cap: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.from,
		To:   &call.Contract,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate %s: %w", call.Method(), err)
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &call.Contract,
		Data:      data,
	})

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", call.Method(), err)
	}
	return signed.Hash(), nil
}

// WaitForReceipt implements Backend: polls until the transaction is mined
// or the context ends.
func (e *EVMClient) WaitForReceipt(ctx context.Context, tx common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(e.receiptPollInterval)
	defer ticker.Stop()

	for {
		rcpt, err := e.client.TransactionReceipt(ctx, tx)
		if err == nil && rcpt != nil {
			out := &Receipt{
				TxHash:      tx,
				Status:      rcpt.Status,
				BlockNumber: rcpt.BlockNumber,
			}
			if head, herr := e.client.HeaderByNumber(ctx, nil); herr == nil && rcpt.BlockNumber != nil {
				diff := new(big.Int).Sub(head.Number, rcpt.BlockNumber)
				if diff.Sign() >= 0 {
					out.Confirmations = diff.Uint64() + 1
				}
			}
			return out, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", tx.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
