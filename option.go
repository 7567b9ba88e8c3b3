package subflow

import (
	"time"

	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/metrics"
	"github.com/vitwit/subflow/quotes"
)

// Option customizes a Session at construction time.
type Option func(*Session)

// WithLogger replaces the default zap logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithMetrics installs a metrics recorder; the default records nothing.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Session) {
		s.rec = r
	}
}

// WithOnUpdate registers a callback invoked whenever the derived state or
// phase changes. The callback runs on the session's polling goroutine and
// must not block.
func WithOnUpdate(fn func(Update)) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// WithPollInterval overrides the config's balance polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = interval
	}
}

// WithQuoteSources replaces the HTTP gas-price and token-price clients,
// for tests or for callers with their own oracles.
func WithQuoteSources(gas quotes.GasPricer, price quotes.TokenPricer, memoTTL time.Duration) Option {
	return func(s *Session) {
		s.gasPricer = gas
		s.tokenPricer = price
		s.feeMemoTTL = memoTTL
	}
}
