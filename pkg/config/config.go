// Package config provides typed configuration values backed by pluggable
// sources, falling back to defaults when a source has nothing set.
package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates the source has no value set
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the source was used after Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped configuration source. Sources return either raw bytes,
// which typed wrappers parse, or an already typed value.
type Config interface {
	Get(ctx context.Context) (interface{}, error)

	// Shutdown releases any resources held by the source
	Shutdown()
}

// Value is a typed configuration value.
type Value[T any] interface {
	// Get returns the current value, or the last known good value when the
	// source fails.
	Get(ctx context.Context) T

	// GetSafe is Get with the source error surfaced.
	GetSafe(ctx context.Context) (T, error)

	Shutdown()
}

type (
	Bool     = Value[bool]
	Duration = Value[time.Duration]
	Float64  = Value[float64]
	Uint64   = Value[uint64]
	String   = Value[string]
)
