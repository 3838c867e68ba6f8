package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// benchmarkMix exercises a read/write mix against a warm cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// String keys include strconv/concat costs and often allocate, which is fine
// for an end-to-end benchmark.
func benchmarkMix(b *testing.B, readsPct int) {
	c := MustNew[string, string](Options[string, string]{
		MaxSize: 100_000,
	})

	// Preload half the capacity to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Set(k, "v")
	}

	// Report per-op allocations for a rough idea where costs go.
	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Set(k, "v")
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, 50) }

// benchmarkMixInt is the same workload but with int keys.
// This removes strconv/alloc noise and better exposes the cache hot path.
func benchmarkMixInt(b *testing.B, readsPct int) {
	c := MustNew[int, int](Options[int, int]{
		MaxSize: 100_000,
	})

	for i := 0; i < 50_000; i++ {
		c.Set(i, 1)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Set(k, 1)
			}
			i++
		}
	})
}

func BenchmarkCache_IntKeys_90r10w(b *testing.B) { benchmarkMixInt(b, 90) }
func BenchmarkCache_IntKeys_50r50w(b *testing.B) { benchmarkMixInt(b, 50) }

// benchmarkTTLMix adds timestamp stamping and the time list to the hot path.
// A long TTL keeps expiry out of the picture so the comparison against the
// plain benchmarks isolates the bookkeeping overhead.
func benchmarkTTLMix(b *testing.B, readsPct int) {
	c := MustNewTTL[int, int](Options[int, int]{
		MaxSize: 100_000,
		TTL:     time.Hour,
	})
	b.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 50_000; i++ {
		c.Set(i, 1)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Set(k, 1)
			}
			i++
		}
	})
}

func BenchmarkTTLCache_90r10w(b *testing.B) { benchmarkTTLMix(b, 90) }
func BenchmarkTTLCache_50r50w(b *testing.B) { benchmarkTTLMix(b, 50) }

// BenchmarkTTLCache_Cleanup measures a sweep over a fully expired cache.
func BenchmarkTTLCache_Cleanup(b *testing.B) {
	clk := &fakeClock{}
	c := MustNewTTL[int, int](Options[int, int]{
		MaxSize: 100_000,
		TTL:     time.Millisecond,
		Clock:   clk,
	})

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for j := 0; j < 10_000; j++ {
			c.Set(j, j)
		}
		clk.add(time.Second) // everything expires
		b.StartTimer()

		if removed := c.Cleanup(); removed != 10_000 {
			b.Fatalf("Cleanup removed %d, want 10000", removed)
		}
	}
}
