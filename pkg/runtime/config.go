package runtime

import (
	"github.com/tixchain/ticket-server/pkg/config"
	"github.com/tixchain/ticket-server/pkg/config/env"
	"github.com/tixchain/ticket-server/pkg/config/memory"
	"github.com/tixchain/ticket-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RUNTIME_"

	LamportsPerSignatureConfigEnvName = envConfigPrefix + "LAMPORTS_PER_SIGNATURE"
	defaultLamportsPerSignature       = 5_000

	MaxBlockhashAgeConfigEnvName = envConfigPrefix + "MAX_BLOCKHASH_AGE"
	defaultMaxBlockhashAge       = 150

	AccountLockStripesConfigEnvName = envConfigPrefix + "ACCOUNT_LOCK_STRIPES"
	defaultAccountLockStripes       = 1024

	MaxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4

	StatusCacheSizeConfigEnvName = envConfigPrefix + "STATUS_CACHE_SIZE"
	defaultStatusCacheSize       = 100_000
)

type conf struct {
	lamportsPerSignature config.Uint64
	maxBlockhashAge      config.Uint64
	accountLockStripes   config.Uint64
	maxInvokeDepth       config.Uint64
	statusCacheSize      config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerSignature: env.NewUint64Config(LamportsPerSignatureConfigEnvName, defaultLamportsPerSignature),
			maxBlockhashAge:      env.NewUint64Config(MaxBlockhashAgeConfigEnvName, defaultMaxBlockhashAge),
			accountLockStripes:   env.NewUint64Config(AccountLockStripesConfigEnvName, defaultAccountLockStripes),
			maxInvokeDepth:       env.NewUint64Config(MaxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),
			statusCacheSize:      env.NewUint64Config(StatusCacheSizeConfigEnvName, defaultStatusCacheSize),
		}
	}
}

// Overrides are manually provided runtime settings, primarily used for tests
// and local tooling.
type Overrides struct {
	LamportsPerSignature uint64
	MaxBlockhashAge      uint64
}

// WithOverrides returns configuration backed by in-memory values, falling back
// to defaults for anything left at zero.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		lamportsPerSignature := overrides.LamportsPerSignature
		if lamportsPerSignature == 0 {
			lamportsPerSignature = defaultLamportsPerSignature
		}

		maxBlockhashAge := overrides.MaxBlockhashAge
		if maxBlockhashAge == 0 {
			maxBlockhashAge = defaultMaxBlockhashAge
		}

		return &conf{
			lamportsPerSignature: wrapper.NewUint64Config(memory.NewConfig(lamportsPerSignature), defaultLamportsPerSignature),
			maxBlockhashAge:      wrapper.NewUint64Config(memory.NewConfig(maxBlockhashAge), defaultMaxBlockhashAge),
			accountLockStripes:   wrapper.NewUint64Config(memory.NewConfig(uint64(64)), defaultAccountLockStripes),
			maxInvokeDepth:       wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxInvokeDepth)), defaultMaxInvokeDepth),
			statusCacheSize:      wrapper.NewUint64Config(memory.NewConfig(uint64(1_000)), defaultStatusCacheSize),
		}
	}
}
