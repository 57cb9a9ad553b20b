package resolver

import (
	"errors"
	"time"

	"github.com/storacha/go-didauth/resolver/cache"
)

// DefaultTimeout bounds each backend call.
const DefaultTimeout = 5 * time.Second

// Option is an option configuring a registry.
type Option func(cfg *registryConfig) error

type registryConfig struct {
	backends []Backend
	cache    cache.Cache
	timeout  time.Duration
	now      func() time.Time
}

// WithBackend registers a backend. Registering two backends for the same
// method fails.
func WithBackend(b Backend) Option {
	return func(cfg *registryConfig) error {
		if b == nil {
			return errors.New("backend is nil")
		}
		cfg.backends = append(cfg.backends, b)
		return nil
	}
}

// WithCache configures where resolutions are cached. The default is an in
// memory LRU of [cache.MemoryCacheSize] entries.
func WithCache(c cache.Cache) Option {
	return func(cfg *registryConfig) error {
		if c == nil {
			return errors.New("cache is nil")
		}
		cfg.cache = c
		return nil
	}
}

// WithTimeout bounds each backend call. Zero or less disables the bound,
// leaving only the deadline of the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(cfg *registryConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithClock sets the time source used to stamp cache entries.
func WithClock(now func() time.Time) Option {
	return func(cfg *registryConfig) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		cfg.now = now
		return nil
	}
}
