// Package env provides config values read from environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/tixchain/ticket-server/pkg/config"
	"github.com/tixchain/ticket-server/pkg/config/wrapper"
)

type source struct {
	key string
}

// NewConfig returns a source for the upper-cased environment variable key.
// The variable is read on every Get, and empty values count as unset.
func NewConfig(key string) config.Config {
	return &source{key: strings.ToUpper(key)}
}

func (s *source) Get(_ context.Context) (interface{}, error) {
	value := os.Getenv(s.key)
	if len(value) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(value), nil
}

func (s *source) Shutdown() {}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}
