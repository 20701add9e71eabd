package cache

import "context"

// Cache is a sharded, goroutine-safe LFU cache.
// All methods are safe for concurrent use by multiple goroutines.
//
// Each shard owns one LFU engine behind a mutex, so every operation is
// amortized O(1): a hash to pick the shard, then one engine call under the
// shard lock.
type Cache[K comparable, V any] interface {
	// Put inserts or replaces k→v. It returns the previous value and true
	// when k was already resident; a replacement does not bump frequency.
	Put(k K, v V) (prev V, replaced bool)

	// Get returns the value for k and a presence flag.
	// On hit, the entry's frequency is bumped.
	Get(k K) (V, bool)

	// GetOrPut returns the cached value for k, or calls supply once on a miss
	// and stores what it yields. supply runs under the shard lock; it must
	// be quick and must not call back into the cache.
	GetOrPut(k K, supply func() (V, bool)) (V, bool)

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// Each call counts one hit or one miss. A load whose ctx is done by the
	// time the Loader returns is not stored, and that caller gets ctx.Err().
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Remove deletes k if present and returns its value.
	Remove(k K) (V, bool)

	// Frequency reports the 1-based access frequency of k, or 0 if absent.
	Frequency(k K) int

	// Len returns the total number of resident entries across all shards.
	Len() int

	// Cap returns the total capacity across all shards.
	Cap() int

	// Stats returns a snapshot of hit/miss/eviction counters.
	Stats() Stats

	// Close marks the cache closed: writes are dropped, reads miss,
	// GetOrLoad returns ErrClosed. It always returns nil.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions uint64 // policy evictions only; Remove is not counted
	Entries   int
}
