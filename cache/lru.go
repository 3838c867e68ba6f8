package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a fixed-capacity LRU cache. A map gives O(1) key lookup and an
// intrusive, sentinel-rooted doubly linked list keeps nodes in strict
// recency order (head = MRU, tail = LRU), so every operation is O(1).
//
// A Cache must be created with New or MustNew; the zero value is not ready
// for use. All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu     sync.Mutex
	m      map[K]*node[K, V]
	root   node[K, V] // sentinel: root.next = MRU, root.prev = LRU
	cap    int
	hits   uint64
	misses uint64

	opt Options[K, V]

	// removed is invoked (lock held) for every node leaving the index,
	// whatever the path: capacity eviction, Remove, or TTL expiration.
	// The TTL layer hooks it to keep the time list consistent with the
	// index in the same critical section. Nil on a plain Cache.
	removed func(*node[K, V])

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group
}

// Pair is a key/value couple for SetMany.
type Pair[K comparable, V any] struct {
	Key K
	Val V
}

// New constructs an LRU cache with the provided Options.
// It returns ErrInvalidConfiguration when MaxSize <= 0.
// The TTL-related Options fields are ignored; use NewTTL for expiration.
func New[K comparable, V any](opt Options[K, V]) (*Cache[K, V], error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	c := &Cache[K, V]{
		m:   make(map[K]*node[K, V], opt.MaxSize),
		cap: opt.MaxSize,
		opt: opt,
	}
	c.root.prev = &c.root
	c.root.next = &c.root
	return c, nil
}

// MustNew is like New but panics on invalid configuration.
func MustNew[K comparable, V any](opt Options[K, V]) *Cache[K, V] {
	c, err := New(opt)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value for k and a presence flag.
// On hit the entry is promoted to MRU; every call updates hit/miss counters.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		c.missLocked()
		var zero V
		return zero, false
	}
	c.hitLocked(n)
	return n.val, true
}

// Set inserts or updates k→v. An update refreshes recency in place.
// Inserting into a full cache first evicts the LRU tail, exactly one
// node per overflowing insert.
func (c *Cache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(k, v)
}

// Remove deletes k if present and returns true on success.
func (c *Cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.deleteNodeLocked(n)
	return true
}

// Contains reports whether k is present without promoting the entry
// and without touching the hit/miss counters.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[k]
	return ok
}

// Clear drops every entry and resets the hit/miss counters.
// Capacity and configuration are untouched. OnEvict is not called.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int { return c.cap }

// Keys returns the resident keys in recency order, MRU first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.m))
	for n := c.root.next; n != &c.root; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// SetMany applies Set for each pair in order. There is no atomicity
// across entries: an eviction mid-batch does not roll back earlier pairs.
func (c *Cache[K, V]) SetMany(pairs []Pair[K, V]) {
	for _, p := range pairs {
		c.Set(p.Key, p.Val)
	}
}

// GetMany applies Get for each key in order and returns only the found
// entries. Each lookup promotes and counts exactly like Get.
func (c *Cache[K, V]) GetMany(keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked(0)
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return load(ctx, k, &c.sf, c.Get, c.Set, c.opt.Loader)
}

// load is the shared GetOrLoad body for both cache flavors. The
// singleflight group keys on the formatted key, so exactly one Loader
// call runs per distinct key at a time.
func load[K comparable, V any](
	ctx context.Context,
	k K,
	sf *singleflight.Group,
	get func(K) (V, bool),
	set func(K, V),
	loader func(context.Context, K) (V, error),
) (V, error) {
	out, err, _ := sf.Do(fmt.Sprintf("%v", k), func() (any, error) {
		// double-check after flight join
		if v, ok := get(k); ok {
			return v, nil
		}
		v, err := loader(ctx, k)
		if err != nil {
			return nil, err
		}
		set(k, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}

// -------------------- internals (mu held) --------------------

// setLocked inserts or updates and returns the written node so the TTL
// layer can stamp and time-link it in the same critical section.
func (c *Cache[K, V]) setLocked(k K, v V) *node[K, V] {
	if n, ok := c.m[k]; ok {
		n.val = v
		c.moveToFront(n)
		return n
	}

	if len(c.m) >= c.cap {
		// Exactly one eviction per overflowing insert; the list totally
		// orders all nodes, so the tail is the unique LRU victim.
		c.evictLocked(c.back(), EvictCapacity)
	}

	n := &node[K, V]{key: k, val: v}
	c.m[k] = n
	c.pushFront(n)
	c.opt.Metrics.Size(len(c.m))
	return n
}

func (c *Cache[K, V]) hitLocked(n *node[K, V]) {
	c.moveToFront(n)
	c.hits++
	c.opt.Metrics.Hit()
}

func (c *Cache[K, V]) missLocked() {
	c.misses++
	c.opt.Metrics.Miss()
}

// deleteNodeLocked removes n from the index and the recency list and
// fires the removed hook. Single removal path for every caller, so the
// index, the recency list, and (via the hook) the time list can never
// disagree about which nodes are live.
func (c *Cache[K, V]) deleteNodeLocked(n *node[K, V]) {
	if c.removed != nil {
		c.removed(n)
	}
	c.unlink(n)
	delete(c.m, n.key)
	c.opt.Metrics.Size(len(c.m))
}

// evictLocked is deleteNodeLocked plus eviction accounting and callback.
func (c *Cache[K, V]) evictLocked(n *node[K, V], reason EvictReason) {
	c.deleteNodeLocked(n)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(n.key, n.val, reason)
	}
}

func (c *Cache[K, V]) clearLocked() {
	if c.removed != nil {
		for n := c.root.next; n != &c.root; n = n.next {
			c.removed(n)
		}
	}
	c.m = make(map[K]*node[K, V], c.cap)
	c.root.prev = &c.root
	c.root.next = &c.root
	c.hits, c.misses = 0, 0
	c.opt.Metrics.Size(0)
}

func (c *Cache[K, V]) statsLocked(expired uint64) Stats {
	s := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Expired:  expired,
		Size:     len(c.m),
		Capacity: c.cap,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// now returns the current time in UnixNano via the configured Clock.
func (c *Cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// -------------------- recency list (mu held) --------------------

// pushFront inserts n at MRU in O(1).
func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = &c.root
	n.next = c.root.next
	n.prev.next = n
	n.next.prev = n
}

// moveToFront promotes n to MRU in O(1).
func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if c.root.next == n {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	c.pushFront(n)
}

// unlink detaches n from the recency list in O(1).
func (c *Cache[K, V]) unlink(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// back returns the current LRU node, or nil if the cache is empty.
func (c *Cache[K, V]) back() *node[K, V] {
	if c.root.prev == &c.root {
		return nil
	}
	return c.root.prev
}
