// Package cache provides a generic, in-process LRU cache with an optional
// TTL extension, lightweight metrics hooks, and singleflight loading.
//
// Design
//
//   - Storage: each cache keeps a map[K]*node for lookups and an intrusive,
//     sentinel-rooted MRU↔LRU doubly linked list for recency ordering.
//     All operations are O(1).
//
//   - TTL: TTLCache threads a second intrusive list through the same nodes,
//     ordered by write timestamp. Expiration is lazy on Get/Contains and an
//     active Cleanup sweeps from the oldest write and stops at the first
//     live entry, so a sweep costs O(M) in the number of expired entries.
//     Reads never refresh an entry's TTL; only Set resets the clock.
//
//   - AutoCleanup: an optional background sweeper calls Cleanup on a fixed
//     interval. The cache owns the goroutine; Close stops it and is
//     idempotent.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export
//     metrics. Options.OnEvict(k, v, reason) is called for every capacity
//     eviction and TTL expiration.
//
// Basic usage
//
//	// Create an LRU cache with capacity for 10k entries.
//	c := cache.MustNew[string, []byte](cache.Options[string, []byte]{MaxSize: 10_000})
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With TTL
//
//	t, err := cache.NewTTL[string, string](cache.Options[string, string]{
//	    MaxSize: 1024,
//	    TTL:     200 * time.Millisecond,
//	})
//	if err != nil {
//	    // invalid configuration
//	}
//	t.Set("tmp", "v")
//	time.Sleep(300 * time.Millisecond)
//	_, ok := t.Get("tmp") // ok == false (expired)
//
// With a background sweeper
//
//	t := cache.MustNewTTL[string, string](cache.Options[string, string]{
//	    MaxSize:     1024,
//	    TTL:         time.Minute,
//	    AutoCleanup: true, // CleanupInterval defaults to TTL
//	})
//	defer t.Close() // stops the sweeper; forgetting this leaks a goroutine
//
// Thread-safety & complexity
//
// All methods are safe for concurrent use; state is guarded by a single
// mutex per cache value. Typical operation cost is O(1): one map access and
// a constant amount of pointer fixes. Cleanup is O(M) where M is the number
// of expired entries at call time.
package cache
