package clients

import (
	"context"
	"errors"
	"strings"

	"github.com/vitwit/subflow/types"
)

// classifierRule maps raw provider message substrings to a category. Rules
// are evaluated in order; the first hit wins, so more specific messages
// must come before the generic buckets.
type classifierRule struct {
	substrings []string
	category   types.ErrorCategory
}

var classifierRules = []classifierRule{
	{[]string{"user rejected the request", "user denied", "rejected by user"}, types.CategoryUserRejected},
	{[]string{"insufficient funds", "insufficient balance for transfer"}, types.CategoryInsufficientFunds},
	{[]string{"gas required exceeds allowance", "out of gas", "intrinsic gas too low", "exceeds block gas limit"}, types.CategoryGasLimitExceeded},
	{[]string{"execution reverted", "transaction reverted", "revert"}, types.CategoryExecutionReverted},
	{[]string{"chain mismatch", "does not match the target chain", "unsupported chain id", "wrong chain"}, types.CategoryWrongChain},
	{[]string{"invalid address", "bad address checksum", "invalid recipient"}, types.CategoryInvalidAddress},
	{[]string{"function selector was not recognized", "does not support the interface", "unknown function"}, types.CategoryUnsupportedInterface},
	{[]string{"no contract code at", "contract is not deployed", "returned no data (\"0x\")"}, types.CategoryContractNotDeployed},
	{[]string{"nonce too low", "nonce too high", "nonce has already been used", "replacement transaction underpriced"}, types.CategoryNonceExceeded},
	{[]string{"invalid signature", "signature mismatch", "bad signature"}, types.CategoryInvalidSignature},
	{[]string{"timed out", "timeout", "deadline exceeded"}, types.CategoryTimeout},
	{[]string{"failed to fetch", "fetch failed", "econnrefused", "connection refused"}, types.CategoryFetchFailure},
	{[]string{"network error", "disconnected", "no such host", "connection reset"}, types.CategoryNetworkError},
	{[]string{"call exception", "call revert exception", "missing revert data"}, types.CategoryCallException},
	{[]string{"internal json-rpc error", "provider error", "rpc error", "missing trie node"}, types.CategoryProviderError},
}

// Classify maps a raw provider or contract error onto a user-facing
// category by message inspection, falling back to the generic bucket.
func Classify(err error) types.ErrorCategory {
	if err == nil {
		return types.CategoryUnknownError
	}

	var flowErr *types.FlowError
	if errors.As(err, &flowErr) && flowErr.Category != "" {
		return flowErr.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classifierRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.category
			}
		}
	}
	return types.CategoryUnknownError
}
