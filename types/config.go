package types

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config carries the external-service endpoints and timing knobs of a
// session. It is constructed explicitly (or via LoadConfig from the
// environment) and handed to New; there is no process-wide instance.
type Config struct {
	// Gas-price quote endpoint, Blocknative blockprices shape.
	GasAPIURL string `env:"SUBFLOW_GAS_API_URL" envDefault:"https://api.blocknative.com/gasprices/blockprices"`
	GasAPIKey string `env:"SUBFLOW_GAS_API_KEY"`

	// Native-token USD price endpoint, CoinGecko simple/price shape.
	PriceAPIURL string `env:"SUBFLOW_PRICE_API_URL" envDefault:"https://api.coingecko.com/api/v3/simple/price"`

	HTTPTimeout  time.Duration `env:"SUBFLOW_HTTP_TIMEOUT" envDefault:"10s"`
	PollInterval time.Duration `env:"SUBFLOW_POLL_INTERVAL" envDefault:"1s"`

	// How long cached gas and price quotes stay fresh.
	GasQuoteTTL   time.Duration `env:"SUBFLOW_GAS_QUOTE_TTL" envDefault:"10s"`
	TokenPriceTTL time.Duration `env:"SUBFLOW_TOKEN_PRICE_TTL" envDefault:"60s"`

	LogLevel string `env:"SUBFLOW_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads Config from the environment, applying defaults for
// anything unset.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DefaultConfig returns the same defaults LoadConfig would apply with an
// empty environment.
func DefaultConfig() Config {
	return Config{
		GasAPIURL:     "https://api.blocknative.com/gasprices/blockprices",
		PriceAPIURL:   "https://api.coingecko.com/api/v3/simple/price",
		HTTPTimeout:   10 * time.Second,
		PollInterval:  time.Second,
		GasQuoteTTL:   10 * time.Second,
		TokenPriceTTL: 60 * time.Second,
		LogLevel:      "info",
	}
}
