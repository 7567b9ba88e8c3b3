package types

// ErrorCategory is a user-facing classification of a provider or contract
// error. UserRejected is an expected outcome of user choice and must not be
// surfaced as an error banner by callers.
type ErrorCategory string

const (
	CategoryUnsupportedNetworkOrToken ErrorCategory = "unsupported_network_or_token"
	CategoryInsufficientWalletBalance ErrorCategory = "insufficient_wallet_balance"
	CategoryUserRejected              ErrorCategory = "user_rejected"
	CategoryInsufficientFunds         ErrorCategory = "insufficient_funds"
	CategoryGasLimitExceeded          ErrorCategory = "gas_limit_exceeded"
	CategoryExecutionReverted         ErrorCategory = "execution_reverted"
	CategoryNetworkError              ErrorCategory = "network_error"
	CategoryWrongChain                ErrorCategory = "wrong_chain"
	CategoryInvalidAddress            ErrorCategory = "invalid_address"
	CategoryUnsupportedInterface      ErrorCategory = "unsupported_interface"
	CategoryProviderError             ErrorCategory = "provider_error"
	CategoryContractNotDeployed       ErrorCategory = "contract_not_deployed"
	CategoryNonceExceeded             ErrorCategory = "nonce_exceeded"
	CategoryInvalidSignature          ErrorCategory = "invalid_signature"
	CategoryTimeout                   ErrorCategory = "timeout"
	CategoryFetchFailure              ErrorCategory = "fetch_failure"
	CategoryCallException             ErrorCategory = "call_exception"
	CategoryUnknownError              ErrorCategory = "unknown_error"
)

// Title returns a short human-readable heading for an error panel.
func (c ErrorCategory) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return "Something went wrong"
}

var categoryTitles = map[ErrorCategory]string{
	CategoryUnsupportedNetworkOrToken: "Unsupported network or token",
	CategoryInsufficientWalletBalance: "Insufficient balance",
	CategoryUserRejected:              "Request rejected",
	CategoryInsufficientFunds:         "Insufficient funds",
	CategoryGasLimitExceeded:          "Gas limit exceeded",
	CategoryExecutionReverted:         "Transaction reverted",
	CategoryNetworkError:              "Network error",
	CategoryWrongChain:                "Wrong network",
	CategoryInvalidAddress:            "Invalid address",
	CategoryUnsupportedInterface:      "Unsupported contract interface",
	CategoryProviderError:             "Provider error",
	CategoryContractNotDeployed:       "Contract not deployed",
	CategoryNonceExceeded:             "Nonce error",
	CategoryInvalidSignature:          "Invalid signature",
	CategoryTimeout:                   "Request timed out",
	CategoryFetchFailure:              "Fetch failed",
	CategoryCallException:             "Call exception",
	CategoryUnknownError:              "Something went wrong",
}

// FlowError is the library's typed error. Code carries a stable machine
// identifier; Message is free-form.
type FlowError struct {
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category,omitempty"`
}

func (e *FlowError) Error() string {
	return e.Message
}

// Error codes.
const (
	ErrUnsupportedNetworkOrToken = "UNSUPPORTED_NETWORK_OR_TOKEN"
	ErrUnsupportedCycle          = "UNSUPPORTED_CYCLE"
	ErrInvalidRequest            = "INVALID_REQUEST"
	ErrNotReady                  = "NOT_READY"
	ErrAlreadySubmitting         = "ALREADY_SUBMITTING"
	ErrSessionClosed             = "SESSION_CLOSED"
	ErrNetworkError              = "NETWORK_ERROR"
)
