// Package quotes fetches the two best-effort external inputs of a fee
// estimate: a fee-per-gas quote for a chain and the USD price of its
// native token. Both endpoints may be down at any time; callers get an
// error and are expected to degrade, never to abort the flow.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	retry "github.com/avast/retry-go"
	"github.com/shopspring/decimal"

	"github.com/vitwit/subflow/logger"
	"github.com/vitwit/subflow/types"
)

// Confidence tier used when the gas endpoint offers several. 90 is the
// provider's "medium" tier.
const mediumConfidence = 90

// GasPricer supplies a fee-per-gas quote in wei for a chain.
type GasPricer interface {
	GasPrice(ctx context.Context, chainID int64) (*big.Int, error)
}

// TokenPricer supplies the USD price of a native token by oracle id.
type TokenPricer interface {
	TokenPrice(ctx context.Context, priceID string) (decimal.Decimal, error)
}

// Client implements both quote sources over HTTP with short-lived caches,
// so a burst of fee estimates does not hammer the providers.
type Client struct {
	httpClient *http.Client

	gasURL   string
	gasKey   string
	priceURL string

	gasTTL   time.Duration
	priceTTL time.Duration

	gasCache   *cache.Cache[int64, *big.Int]
	priceCache *cache.Cache[string, decimal.Decimal]

	log logger.Logger
}

var _ GasPricer = (*Client)(nil)
var _ TokenPricer = (*Client)(nil)

// NewClient builds a quote client from session config.
func NewClient(cfg types.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		gasURL:     cfg.GasAPIURL,
		gasKey:     cfg.GasAPIKey,
		priceURL:   cfg.PriceAPIURL,
		gasTTL:     cfg.GasQuoteTTL,
		priceTTL:   cfg.TokenPriceTTL,
		gasCache:   cache.New[int64, *big.Int](),
		priceCache: cache.New[string, decimal.Decimal](),
		log:        log,
	}
}

// blockPricesResponse is the shape of the gas endpoint's payload.
type blockPricesResponse struct {
	BlockPrices []struct {
		BaseFeePerGas   float64 `json:"baseFeePerGas"`
		EstimatedPrices []struct {
			Confidence           int     `json:"confidence"`
			MaxPriorityFeePerGas float64 `json:"maxPriorityFeePerGas"`
			MaxFeePerGas         float64 `json:"maxFeePerGas"`
		} `json:"estimatedPrices"`
	} `json:"blockPrices"`
}

// GasPrice returns the medium-confidence max fee per gas in wei for the
// chain, serving a cached value while it is fresh.
func (c *Client) GasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	if cached, ok := c.gasCache.Get(chainID); ok {
		return cached, nil
	}

	reqURL := fmt.Sprintf("%s?chainid=%d", c.gasURL, chainID)

	var parsed blockPricesResponse
	err := retry.Do(func() error {
		return c.getJSON(ctx, reqURL, c.gasKey, &parsed)
	}, retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.Context(ctx), retry.LastErrorOnly(true))
	if err != nil {
		return nil, fmt.Errorf("gas price quote for chain %d: %w", chainID, err)
	}

	if len(parsed.BlockPrices) == 0 {
		return nil, fmt.Errorf("no block price data for chain %d", chainID)
	}
	for _, price := range parsed.BlockPrices[0].EstimatedPrices {
		if price.Confidence == mediumConfidence {
			// provider reports gwei
			wei := decimal.NewFromFloat(price.MaxFeePerGas).Shift(9).Truncate(0).BigInt()
			c.gasCache.Set(chainID, wei, cache.WithExpiration(c.gasTTL))
			c.log.Debug("fetched gas quote", map[string]any{"chainId": chainID, "maxFeePerGasWei": wei.String()})
			return wei, nil
		}
	}
	return nil, fmt.Errorf("no medium confidence gas price for chain %d", chainID)
}

// TokenPrice returns the USD price for a native token, serving a cached
// value while it is fresh.
func (c *Client) TokenPrice(ctx context.Context, priceID string) (decimal.Decimal, error) {
	if cached, ok := c.priceCache.Get(priceID); ok {
		return cached, nil
	}

	reqURL := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", c.priceURL, url.QueryEscape(priceID))

	var parsed map[string]map[string]decimal.Decimal
	err := retry.Do(func() error {
		return c.getJSON(ctx, reqURL, "", &parsed)
	}, retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.Context(ctx), retry.LastErrorOnly(true))
	if err != nil {
		return decimal.Zero, fmt.Errorf("token price for %s: %w", priceID, err)
	}

	usd, ok := parsed[priceID]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("no usd price for token %s", priceID)
	}
	c.priceCache.Set(priceID, usd, cache.WithExpiration(c.priceTTL))
	return usd, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
