// Package cache provides a fixed-capacity, generic, in-memory LFU cache:
// least-frequently-used eviction with an LRU tie-break, amortized O(1) for
// every operation including eviction.
//
// # Design
//
//   - Engine: LFU keeps a map[K]*node for lookups and an array of
//     frequency buckets indexed 0..Capacity-1. Each bucket is an intrusive
//     list ordered by insertion, oldest at the front. A cursor remembers the
//     lowest non-empty bucket, so eviction starts there without a scan.
//
//   - Frequency: a new key starts in bucket 0. Get moves an entry to the
//     back of the next bucket; Put on a resident key only replaces the
//     value. Frequencies saturate at Capacity-1, where further hits move
//     the entry to the back of the top bucket (plain LRU among the hottest).
//
//   - Batched eviction: when a Put finds the cache full it evicts
//     Options.EvictionCount entries at once, lowest frequency first and
//     oldest first within a frequency. The cursor scan that follows an
//     emptied bucket is thereby paid at most once per batch.
//
//   - Concurrency: LFU is single-owner and never locks. New returns a
//     sharded Cache that owns one LFU per shard behind a mutex and
//     coalesces concurrent GetOrLoad misses (singleflight).
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/EvictBatch signals.
//     By default NoopMetrics is used; see package metrics/prom.
//
// # Basic usage
//
//	c := cache.MustNewLFU[string, int](cache.Options[string, int]{
//	    Capacity:      1024,
//	    EvictionCount: 16,
//	})
//	c.Put("a", 1)
//	if v, ok := c.Get("a"); ok {
//	    _ = v // c.Frequency("a") == 2
//	}
//	c.Remove("a")
//
// # Shared between goroutines
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity:      100_000,
//	    EvictionCount: 64,
//	    Loader: func(ctx context.Context, k string) ([]byte, error) {
//	        return fetch(ctx, k) // e.g. from a DB
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
//
// # Panics
//
// The engine panics with an error wrapping ErrCorrupted if its
// lowest-frequency cursor ever points at an empty bucket during eviction.
// That is a bookkeeping bug, never a caller error.
package cache
