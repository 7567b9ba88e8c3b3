// Package fees produces display-ready network-fee quotes for the pending
// flow action. Quotes are best-effort: every upstream failure degrades to
// a zero-valued quote instead of propagating, so a UI always has something
// to render.
package fees

import (
	"context"
	"fmt"
	"math/big"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vitwit/subflow/clients"
	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/metrics"
	"github.com/vitwit/subflow/quotes"
	"github.com/vitwit/subflow/registry"
	"github.com/vitwit/subflow/types"
)

// Fee amounts render with 12 fraction digits, USD with 2.
const (
	feePlaces = 12
	usdPlaces = 2
)

// GasEstimator is the single chain call the estimator needs.
type GasEstimator interface {
	EstimateGas(ctx context.Context, from common.Address, call clients.Call) (uint64, error)
}

// Estimator combines a gas estimate with external gas-price and USD-price
// quotes. Results are memoized by the value of the request tuple (chain,
// contract, method, args, account), so re-estimating an equivalent request
// does not re-fetch.
type Estimator struct {
	chain GasEstimator
	gas   quotes.GasPricer
	price quotes.TokenPricer

	memo    *cache.Cache[string, types.FeeQuote]
	memoTTL time.Duration

	log logger.Logger
	rec metrics.Recorder
}

// NewEstimator builds a fee estimator over the given collaborators.
func NewEstimator(chain GasEstimator, gas quotes.GasPricer, price quotes.TokenPricer, memoTTL time.Duration, log logger.Logger, rec metrics.Recorder) *Estimator {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if memoTTL <= 0 {
		memoTTL = 15 * time.Second
	}
	return &Estimator{
		chain:   chain,
		gas:     gas,
		price:   price,
		memo:    cache.New[string, types.FeeQuote](),
		memoTTL: memoTTL,
		log:     log,
		rec:     rec,
	}
}

// ZeroQuote is the degraded quote rendered when estimation fails.
func ZeroQuote(nativeSymbol string) types.FeeQuote {
	return types.FeeQuote{
		Fee:      fmt.Sprintf("%s %s", decimal.Zero.StringFixed(feePlaces), nativeSymbol),
		USDValue: "($0.00)",
	}
}

// Estimate never fails: any upstream error yields the zero quote. The
// three inputs degrade independently; a dead price oracle still leaves the
// native fee amount intact.
func (e *Estimator) Estimate(ctx context.Context, network *registry.NetworkDescriptor, from common.Address, call clients.Call) types.FeeQuote {
	key := fmt.Sprintf("%d|%s|%s", network.ChainID, from.Hex(), call.Key())
	if quote, ok := e.memo.Get(key); ok {
		return quote
	}

	started := time.Now()
	quote := e.estimate(ctx, network, from, call)
	e.rec.ObserveLatency("fee_estimate", time.Since(started), map[string]string{"scope": network.Name})

	e.memo.Set(key, quote, cache.WithExpiration(e.memoTTL))
	return quote
}

func (e *Estimator) estimate(ctx context.Context, network *registry.NetworkDescriptor, from common.Address, call clients.Call) types.FeeQuote {
	gasUnits, err := e.chain.EstimateGas(ctx, from, call)
	if err != nil {
		e.log.Warn("gas estimation failed", map[string]any{
			"chain": network.Name, "method": call.Method(), "error": err.Error(),
		})
		e.rec.IncCounter("fee_estimate_degraded", map[string]string{"scope": network.Name})
		return ZeroQuote(network.NativeSymbol)
	}

	feePerGas, err := e.gas.GasPrice(ctx, network.ChainID)
	if err != nil {
		e.log.Warn("gas price quote failed", map[string]any{
			"chain": network.Name, "error": err.Error(),
		})
		e.rec.IncCounter("fee_estimate_degraded", map[string]string{"scope": network.Name})
		return ZeroQuote(network.NativeSymbol)
	}

	// integer wei math; decimals only at the display boundary
	feeWei := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), feePerGas)
	feeNative := decimal.NewFromBigInt(feeWei, -18)

	usdValue := "(~$0.00)"
	price, err := e.price.TokenPrice(ctx, network.PriceID)
	if err != nil {
		e.log.Warn("token price fetch failed", map[string]any{
			"priceId": network.PriceID, "error": err.Error(),
		})
	} else {
		usdValue = fmt.Sprintf("(~$%s)", feeNative.Mul(price).StringFixed(usdPlaces))
	}

	return types.FeeQuote{
		Fee:      fmt.Sprintf("%s %s", feeNative.StringFixed(feePlaces), network.NativeSymbol),
		USDValue: usdValue,
	}
}
