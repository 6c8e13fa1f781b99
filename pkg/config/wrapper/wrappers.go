// Package wrapper turns untyped config sources into typed values with
// defaults.
package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/config"
)

var ErrUnsupportedConversion = errors.New("config: unsupported value type")

type parseFunc[T any] func(raw string) (T, error)

type typedConfig[T any] struct {
	source       config.Config
	parse        parseFunc[T]
	defaultValue T

	mu        sync.RWMutex
	lastValue T
}

func newTypedConfig[T any](source config.Config, defaultValue T, parse parseFunc[T]) *typedConfig[T] {
	return &typedConfig[T]{
		source:       source,
		parse:        parse,
		defaultValue: defaultValue,
		lastValue:    defaultValue,
	}
}

// GetSafe returns the source's value, the default when the source has none, or
// the last known value alongside the error when the source fails.
func (c *typedConfig[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.source.Get(ctx)
	if err == config.ErrNoValue {
		c.remember(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return c.last(), err
	}

	var value T
	switch typed := raw.(type) {
	case T:
		value = typed
	case []byte:
		value, err = c.parse(string(typed))
	case string:
		value, err = c.parse(typed)
	default:
		err = ErrUnsupportedConversion
	}
	if err != nil {
		return c.last(), err
	}

	c.remember(value)
	return value, nil
}

func (c *typedConfig[T]) Get(ctx context.Context) T {
	value, _ := c.GetSafe(ctx)
	return value
}

func (c *typedConfig[T]) Shutdown() {
	c.source.Shutdown()
}

func (c *typedConfig[T]) remember(value T) {
	c.mu.Lock()
	c.lastValue = value
	c.mu.Unlock()
}

func (c *typedConfig[T]) last() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastValue
}

func NewBoolConfig(source config.Config, defaultValue bool) config.Bool {
	return newTypedConfig(source, defaultValue, strconv.ParseBool)
}

// NewDurationConfig parses values in time.ParseDuration format, e.g. "1.5s".
func NewDurationConfig(source config.Config, defaultValue time.Duration) config.Duration {
	return newTypedConfig(source, defaultValue, time.ParseDuration)
}

func NewFloat64Config(source config.Config, defaultValue float64) config.Float64 {
	return newTypedConfig(source, defaultValue, func(raw string) (float64, error) {
		return strconv.ParseFloat(raw, 64)
	})
}

func NewUint64Config(source config.Config, defaultValue uint64) config.Uint64 {
	return newTypedConfig(source, defaultValue, func(raw string) (uint64, error) {
		return strconv.ParseUint(raw, 10, 64)
	})
}

func NewStringConfig(source config.Config, defaultValue string) config.String {
	return newTypedConfig(source, defaultValue, func(raw string) (string, error) {
		return raw, nil
	})
}
