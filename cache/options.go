package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfiguration is returned by New/NewTTL for non-positive
// capacity, a negative TTL, or a non-positive cleanup interval when
// AutoCleanup is requested. Construction fails atomically; no partially
// built cache is ever returned alongside it.
var ErrInvalidConfiguration = errors.New("cache: invalid configuration")

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader provided")

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — removed as the LRU victim to stay within MaxSize.
	EvictCapacity EvictReason = iota
	// EvictTTL — expired by TTL (lazy check on access or active sweep).
	EvictTTL
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures cache behavior. The same struct feeds both New
// (which ignores the TTL fields) and NewTTL. Zero values are safe except
// for MaxSize, which is required:
//   - nil Metrics        => NoopMetrics
//   - nil Clock          => time.Now
//   - TTL == 0           => expiration disabled (pure LRU)
//   - CleanupInterval == 0 => defaults to TTL when AutoCleanup is set
type Options[K comparable, V any] struct {
	// MaxSize is the entry count limit. Must be > 0.
	MaxSize int

	// TTL is the maximum age of an entry measured from its last write.
	// Reads never extend it; only Set resets the clock. Zero disables
	// expiration entirely. Negative is a configuration error.
	TTL time.Duration

	// AutoCleanup starts a background sweeper that calls Cleanup every
	// CleanupInterval. The TTLCache owns the goroutine; Close stops it.
	AutoCleanup bool

	// CleanupInterval is the sweep period for AutoCleanup.
	// Zero defaults to TTL. Only meaningful when AutoCleanup is set.
	CleanupInterval time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for capacity evictions and TTL expirations,
	// under the cache lock; keep callbacks lightweight. Explicit Remove
	// and Clear do not trigger it.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals. Nil => NoopMetrics.
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

// validate applies to the LRU core; TTL fields are checked in NewTTL.
func (o *Options[K, V]) validate() error {
	if o.MaxSize <= 0 {
		return errorf("MaxSize must be > 0, got %d", o.MaxSize)
	}
	return nil
}

// errorf wraps ErrInvalidConfiguration with detail so callers can match
// the sentinel with errors.Is and still see what was wrong.
func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}
