package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Flow struct {
		// REST access node used for account/balance queries
		AccessNodeURL string `env:"FLOW_ACCESS_NODE_URL" envDefault:"https://rest-testnet.onflow.org"`
		// Wallet discovery endpoint used for the authentication handshake
		DiscoveryURL string `env:"FLOW_DISCOVERY_URL" envDefault:"https://fcl-discovery.onflow.org/testnet/authn"`
		APIToken     string `env:"FLOW_API_TOKEN" envDefault:""`
	}

	Backend struct {
		// Base URL of the identity/artwork persistence API
		APIBaseURL string `env:"BACKEND_API_URL" envDefault:"http://127.0.0.1:8000"`
	}

	Wallet struct {
		ConnectTimeoutMS  int    `env:"WALLET_CONNECT_TIMEOUT_MS" envDefault:"2000"`
		FallbackAddress   string `env:"WALLET_FALLBACK_ADDRESS" envDefault:"0xf8d6e0586b0a20c7"`
		FallbackLimit     int    `env:"WALLET_FALLBACK_LIMIT" envDefault:"2"`
		KeepStaleSession  bool   `env:"WALLET_KEEP_STALE_SESSION" envDefault:"true"`
		BalanceRefreshSec int    `env:"WALLET_BALANCE_REFRESH_SEC" envDefault:"0"`
	}
}

// Load reads .env (if present) and parses the environment into Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env is optional; production sets variables directly
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// ConnectTimeout returns the wallet connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Wallet.ConnectTimeoutMS) * time.Millisecond
}

// BalanceRefreshInterval returns the background balance refresh interval,
// zero when the refresher is disabled.
func (c *Config) BalanceRefreshInterval() time.Duration {
	return time.Duration(c.Wallet.BalanceRefreshSec) * time.Second
}
