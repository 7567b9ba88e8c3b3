// Package registry holds the static table of supported networks and tokens.
// It is loaded once at process start and never mutated; every lookup is a
// pure read.
package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/subflow/types"
)

// TokenDescriptor describes one supported payment token on one chain.
type TokenDescriptor struct {
	Symbol string

	// ERC-20 contract of the token itself.
	TokenAddress common.Address

	// Streaming-protocol contract funds are deposited into.
	ProtocolAddress common.Address

	// Fixed-point scale of on-chain amounts for this token on this chain.
	Decimals int32

	// Block the protocol contract was deployed at, for log scans.
	StartBlock uint64
}

// NetworkDescriptor describes one supported chain.
type NetworkDescriptor struct {
	Name         string
	ChainID      int64
	NativeSymbol string

	// Identifier of the native token on the USD price oracle.
	PriceID string

	// Default read-only RPC endpoint.
	RPCURL string

	Tokens []TokenDescriptor
}

// Token finds a token on this network by symbol, case-insensitively.
func (n *NetworkDescriptor) Token(symbol string) (*TokenDescriptor, bool) {
	for i := range n.Tokens {
		if strings.EqualFold(n.Tokens[i].Symbol, symbol) {
			return &n.Tokens[i], true
		}
	}
	return nil, false
}

// Network returns the descriptor for a chain id.
func Network(chainID int64) (*NetworkDescriptor, bool) {
	for i := range networks {
		if networks[i].ChainID == chainID {
			return &networks[i], true
		}
	}
	return nil, false
}

// Resolve looks up the network and token a request names. It fails with
// ErrUnsupportedNetworkOrToken when either is missing; that state is
// terminal for a session, not retried.
func Resolve(chainID int64, tokenSymbol string) (*NetworkDescriptor, *TokenDescriptor, error) {
	network, ok := Network(chainID)
	if !ok {
		return nil, nil, &types.FlowError{
			Code:     types.ErrUnsupportedNetworkOrToken,
			Message:  fmt.Sprintf("unsupported chain id: %d", chainID),
			Category: types.CategoryUnsupportedNetworkOrToken,
		}
	}
	token, ok := network.Token(tokenSymbol)
	if !ok {
		return nil, nil, &types.FlowError{
			Code:     types.ErrUnsupportedNetworkOrToken,
			Message:  fmt.Sprintf("token %q is not supported on %s", tokenSymbol, network.Name),
			Category: types.CategoryUnsupportedNetworkOrToken,
		}
	}
	return network, token, nil
}

// Default returns the fallback network and token (Ethereum mainnet USDC)
// used for display while an unsupported selection is being reported.
func Default() (*NetworkDescriptor, *TokenDescriptor) {
	network, _ := Network(1)
	token, _ := network.Token("USDC")
	return network, token
}

// Networks returns all supported network descriptors.
func Networks() []NetworkDescriptor {
	return networks
}

var networks = []NetworkDescriptor{
	{
		Name:         "Ethereum",
		ChainID:      1,
		NativeSymbol: "ETH",
		PriceID:      "ethereum",
		RPCURL:       "https://eth-mainnet.nodereal.io/v1/dc0cef7107574ca88e424ec44c4bfff6",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
				ProtocolAddress: common.HexToAddress("0x1c3E45F2D9Dd65ceb6a644A646337015119952ff"),
				Decimals:        6,
				StartBlock:      0x132C577,
			},
			{
				Symbol:          "USDT",
				TokenAddress:    common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"),
				ProtocolAddress: common.HexToAddress("0xb8fD71A4d29e2138056b2a309f97b96ec2A8EeD7"),
				Decimals:        6,
				StartBlock:      0x132C582,
			},
		},
	},
	{
		Name:         "Polygon",
		ChainID:      137,
		NativeSymbol: "POL",
		PriceID:      "matic-network",
		RPCURL:       "https://polygon-mainnet.nodereal.io/v1/7f14d2882c7e4f9397c846ddbd6f79e3",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
				ProtocolAddress: common.HexToAddress("0x574DeD69a731B5e19e1dD6861D1Cc33cfE7dB45c"),
				Decimals:        6,
				StartBlock:      0x377D398,
			},
			{
				Symbol:          "USDT",
				TokenAddress:    common.HexToAddress("0xc2132d05d31c914a87c6611c10748aeb04b58e8f"),
				ProtocolAddress: common.HexToAddress("0x1c3E45F2D9Dd65ceb6a644A646337015119952ff"),
				Decimals:        6,
				StartBlock:      0x377D3BE,
			},
		},
	},
	{
		Name:         "Binance Smart Chain",
		ChainID:      56,
		NativeSymbol: "BNB",
		PriceID:      "binancecoin",
		RPCURL:       "https://bsc-mainnet.nodereal.io/v1/a1bccec11936475a9c70b39efa227fea",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d"),
				ProtocolAddress: common.HexToAddress("0x574DeD69a731B5e19e1dD6861D1Cc33cfE7dB45c"),
				Decimals:        18,
				StartBlock:      0x25CB519,
			},
			{
				Symbol:          "USDT",
				TokenAddress:    common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
				ProtocolAddress: common.HexToAddress("0x1c3E45F2D9Dd65ceb6a644A646337015119952ff"),
				Decimals:        18,
				StartBlock:      0x25CB551,
			},
		},
	},
	{
		Name:         "Avalanche",
		ChainID:      43114,
		NativeSymbol: "AVAX",
		PriceID:      "avalanche-2",
		RPCURL:       "https://open-platform.nodereal.io/ed86a0d6126d4b27b64e1a9e0eb0d9fc/avalanche-c/ext/bc/C/rpc",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"),
				ProtocolAddress: common.HexToAddress("0x1c3E45F2D9Dd65ceb6a644A646337015119952ff"),
				Decimals:        18,
				StartBlock:      0x2C9416B,
			},
			{
				Symbol:          "USDT",
				TokenAddress:    common.HexToAddress("0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7"),
				ProtocolAddress: common.HexToAddress("0x574DeD69a731B5e19e1dD6861D1Cc33cfE7dB45c"),
				Decimals:        18,
				StartBlock:      0x2C94010,
			},
		},
	},
	{
		Name:         "Base",
		ChainID:      8453,
		NativeSymbol: "ETH",
		PriceID:      "ethereum",
		RPCURL:       "https://open-platform.nodereal.io/9e21b0f196c6428dbf4362a87a198758/base",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
				ProtocolAddress: common.HexToAddress("0x574DeD69a731B5e19e1dD6861D1Cc33cfE7dB45c"),
				Decimals:        6,
				StartBlock:      0xF1818D,
			},
		},
	},
	{
		Name:         "ArbitrumOne",
		ChainID:      42161,
		NativeSymbol: "ETH",
		PriceID:      "ethereum",
		RPCURL:       "https://arb1.arbitrum.io/rpc",
		Tokens: []TokenDescriptor{
			{
				Symbol:          "USDC",
				TokenAddress:    common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
				ProtocolAddress: common.HexToAddress("0x574DeD69a731B5e19e1dD6861D1Cc33cfE7dB45c"),
				Decimals:        6,
				StartBlock:      0xD3C97DA,
			},
			{
				Symbol:          "USDT",
				TokenAddress:    common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
				ProtocolAddress: common.HexToAddress("0x1c3E45F2D9Dd65ceb6a644A646337015119952ff"),
				Decimals:        6,
				StartBlock:      0xD3C9A0E,
			},
		},
	},
}
