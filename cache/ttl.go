package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTLCache is an LRU cache whose entries expire a fixed duration after
// their last write. It composes a plain Cache for the index and recency
// bookkeeping and threads a second, sentinel-rooted time list through the
// same nodes, ordered by write timestamp ascending from head to tail.
// Timestamps are assigned monotonically and an update always moves its
// node to the tail, so the list stays sorted without re-sorting and an
// active sweep can stop at the first live node.
//
// Expiration is lazy on Get/Contains and, when AutoCleanup is set, also
// driven by a background sweeper. Reads never refresh an entry's TTL;
// only Set resets the clock.
//
// A TTLCache must be created with NewTTL or MustNewTTL. All methods are
// safe for concurrent use. Callers that enable AutoCleanup must Close the
// cache when done or the sweeper goroutine leaks.
type TTLCache[K comparable, V any] struct {
	core *Cache[K, V]

	// troot is the time list sentinel: troot.tnext is the oldest write,
	// troot.tprev the newest. Guarded by core.mu, as is expired.
	troot   node[K, V]
	ttl     time.Duration
	expired uint64

	sf singleflight.Group

	// Sweeper ownership. cancel is nil when AutoCleanup is off.
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewTTL constructs a TTL cache with the provided Options.
// It returns ErrInvalidConfiguration when MaxSize <= 0, TTL is negative,
// or AutoCleanup is requested with a non-positive effective interval
// (CleanupInterval defaults to TTL). A zero TTL disables expiration:
// the cache behaves as pure LRU and Cleanup always removes nothing.
func NewTTL[K comparable, V any](opt Options[K, V]) (*TTLCache[K, V], error) {
	if opt.TTL < 0 {
		return nil, errorf("TTL must be >= 0, got %v", opt.TTL)
	}
	interval := opt.CleanupInterval
	if interval == 0 {
		interval = opt.TTL
	}
	if opt.AutoCleanup && interval <= 0 {
		return nil, errorf("AutoCleanup requires a positive CleanupInterval or TTL, got %v", interval)
	}

	core, err := New(opt)
	if err != nil {
		return nil, err
	}

	t := &TTLCache[K, V]{
		core: core,
		ttl:  opt.TTL,
	}
	t.troot.tprev = &t.troot
	t.troot.tnext = &t.troot

	// Every removal inside the core (capacity eviction in particular)
	// must drop the node from the time list in the same critical section.
	core.removed = t.tunlink

	if opt.AutoCleanup {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.wg.Add(1)
		go t.sweeper(ctx, interval)
	}
	return t, nil
}

// MustNewTTL is like NewTTL but panics on invalid configuration.
func MustNewTTL[K comparable, V any](opt Options[K, V]) *TTLCache[K, V] {
	t, err := NewTTL(opt)
	if err != nil {
		panic(err)
	}
	return t
}

// Get returns the value for k and a presence flag. An expired entry is
// treated as absent: it is deleted from the index and both lists, and
// both the miss and expired counters advance. A live hit promotes the
// entry to MRU; its TTL is not refreshed.
func (t *TTLCache[K, V]) Get(k K) (V, bool) {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	n, ok := c.m[k]
	if !ok {
		c.missLocked()
		return zero, false
	}
	if t.expiredLocked(n, c.now()) {
		t.expireLocked(n)
		c.missLocked()
		return zero, false
	}
	c.hitLocked(n)
	return n.val, true
}

// Set inserts or updates k→v, stamps the node with the current time, and
// moves it to the time-list tail. An update therefore resets its TTL clock.
func (t *TTLCache[K, V]) Set(k K, v V) {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.setLocked(k, v)
	n.ts = c.now()
	t.tMoveToBack(n)
}

// Remove deletes k if present and returns true on success.
// The node leaves the index and both lists together.
func (t *TTLCache[K, V]) Remove(k K) bool {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.deleteNodeLocked(n)
	return true
}

// Contains reports whether k is present and live. It does not promote the
// entry or touch the hit/miss counters, but an expired entry is lazily
// deleted (advancing the expired counter) exactly as in Get.
func (t *TTLCache[K, V]) Contains(k K) bool {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	if t.expiredLocked(n, c.now()) {
		t.expireLocked(n)
		return false
	}
	return true
}

// Clear drops every entry, resets both lists to empty, and zeroes the
// hit/miss/expired counters. Capacity, TTL, and the sweeper are untouched.
func (t *TTLCache[K, V]) Clear() {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	t.expired = 0
}

// Cleanup sweeps the time list from its head and deletes every expired
// node, stopping at the first live one. Because the list is ordered by
// write time, the sweep is O(M) in the number of expired entries and
// never visits a live node beyond the boundary. Returns the count removed.
func (t *TTLCache[K, V]) Cleanup() int {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.ttl <= 0 {
		return 0
	}
	now := c.now()
	removed := 0
	for n := t.troot.tnext; n != &t.troot; {
		next := n.tnext
		if !t.expiredLocked(n, now) {
			break
		}
		t.expireLocked(n)
		removed++
		n = next
	}
	return removed
}

// Close stops the background sweeper, if one was configured, and waits
// for it to exit. It is idempotent: safe to call repeatedly and safe when
// AutoCleanup was never enabled. The cache itself remains usable.
func (t *TTLCache[K, V]) Close() error {
	t.closeOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
			t.wg.Wait()
		}
	})
	return nil
}

// Len returns the number of resident entries, expired ones included
// until a lazy check or sweep removes them.
func (t *TTLCache[K, V]) Len() int { return t.core.Len() }

// Cap returns the configured capacity.
func (t *TTLCache[K, V]) Cap() int { return t.core.Cap() }

// TTL returns the configured time-to-live (0 = expiration disabled).
func (t *TTLCache[K, V]) TTL() time.Duration { return t.ttl }

// Keys returns the resident keys in recency order, MRU first.
func (t *TTLCache[K, V]) Keys() []K { return t.core.Keys() }

// SetMany applies Set for each pair in order, with no atomicity across
// entries.
func (t *TTLCache[K, V]) SetMany(pairs []Pair[K, V]) {
	for _, p := range pairs {
		t.Set(p.Key, p.Val)
	}
}

// GetMany applies Get for each key in order and returns only the live
// entries found.
func (t *TTLCache[K, V]) GetMany(keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := t.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// Stats returns a snapshot of the cache counters, including the number
// of entries dropped by lazy or active expiration.
func (t *TTLCache[K, V]) Stats() Stats {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked(t.expired)
}

// GetOrLoad returns the value for k; on miss (or expiry) it loads via
// Options.Loader, coalescing concurrent loads for the same key.
// If no Loader is configured, returns ErrNoLoader.
func (t *TTLCache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := t.Get(k); ok {
		return v, nil
	}
	if t.core.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return load(ctx, k, &t.sf, t.Get, t.Set, t.core.opt.Loader)
}

// sweeper periodically invokes Cleanup until Close cancels ctx.
// Each tick holds the lock only for the duration of one sweep, and each
// removal inside a sweep is independently complete, so cancellation at
// any point leaves the cache consistent.
func (t *TTLCache[K, V]) sweeper(ctx context.Context, every time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Cleanup()
		}
	}
}

// -------------------- internals (core.mu held) --------------------

// expiredLocked reports whether n is past its TTL at the given time.
// Always false when TTL is disabled.
func (t *TTLCache[K, V]) expiredLocked(n *node[K, V], now int64) bool {
	if t.ttl <= 0 {
		return false
	}
	return now-n.ts > int64(t.ttl)
}

// expireLocked drops an expired node through the shared eviction path
// and advances the expired counter.
func (t *TTLCache[K, V]) expireLocked(n *node[K, V]) {
	t.core.evictLocked(n, EvictTTL)
	t.expired++
}

// -------------------- time list (core.mu held) --------------------

// tMoveToBack splices n to the time-list tail (the newest-write slot),
// first detaching it if it is already linked.
func (t *TTLCache[K, V]) tMoveToBack(n *node[K, V]) {
	if n.timeLinked() {
		n.tprev.tnext = n.tnext
		n.tnext.tprev = n.tprev
	}
	n.tnext = &t.troot
	n.tprev = t.troot.tprev
	n.tprev.tnext = n
	n.tnext.tprev = n
}

// tunlink detaches n from the time list. Installed as the core's removed
// hook, so every index removal unlinks the time list in the same critical
// section. A node evicted before its first time-link is a no-op.
func (t *TTLCache[K, V]) tunlink(n *node[K, V]) {
	if !n.timeLinked() {
		return
	}
	n.tprev.tnext = n.tnext
	n.tnext.tprev = n.tprev
	n.tprev, n.tnext = nil, nil
}
