package relay

import (
	"github.com/tixchain/ticket-server/pkg/config"
	"github.com/tixchain/ticket-server/pkg/config/env"
	"github.com/tixchain/ticket-server/pkg/config/memory"
	"github.com/tixchain/ticket-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RELAY_"

	WalletRateLimitConfigEnvName = envConfigPrefix + "WALLET_RATE_LIMIT"
	defaultWalletRateLimit       = 5.0

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "finalized"

	QuoteCacheSizeConfigEnvName = envConfigPrefix + "QUOTE_CACHE_SIZE"
	defaultQuoteCacheSize       = 10_000

	MaxRequestBodySizeConfigEnvName = envConfigPrefix + "MAX_REQUEST_BODY_SIZE"
	defaultMaxRequestBodySize       = 16 * 1024
)

type conf struct {
	walletRateLimit    config.Float64
	commitment         config.String
	quoteCacheSize     config.Uint64
	maxRequestBodySize config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			walletRateLimit:    env.NewFloat64Config(WalletRateLimitConfigEnvName, defaultWalletRateLimit),
			commitment:         env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			quoteCacheSize:     env.NewUint64Config(QuoteCacheSizeConfigEnvName, defaultQuoteCacheSize),
			maxRequestBodySize: env.NewUint64Config(MaxRequestBodySizeConfigEnvName, defaultMaxRequestBodySize),
		}
	}
}

// Overrides are manually provided relay settings, primarily used for tests.
type Overrides struct {
	WalletRateLimit float64
	Commitment      string
}

// WithOverrides returns configuration backed by in-memory values, falling back
// to defaults for anything left at zero.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		walletRateLimit := overrides.WalletRateLimit
		if walletRateLimit == 0 {
			walletRateLimit = defaultWalletRateLimit
		}

		commitment := overrides.Commitment
		if commitment == "" {
			commitment = defaultCommitment
		}

		return &conf{
			walletRateLimit:    wrapper.NewFloat64Config(memory.NewConfig(walletRateLimit), defaultWalletRateLimit),
			commitment:         wrapper.NewStringConfig(memory.NewConfig(commitment), defaultCommitment),
			quoteCacheSize:     wrapper.NewUint64Config(memory.NewConfig(uint64(defaultQuoteCacheSize)), defaultQuoteCacheSize),
			maxRequestBodySize: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxRequestBodySize)), defaultMaxRequestBodySize),
		}
	}
}
