package cache

import "context"

// EvictReason explains why an entry left the cache.
type EvictReason int

const (
	// EvictPolicy — removed by the LFU policy to make room for a new key.
	EvictPolicy EvictReason = iota
	// EvictRemoved — deleted explicitly via Remove.
	EvictRemoved
)

// String returns a stable lowercase label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictRemoved:
		return "removed"
	default:
		return "policy"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
//
// The engine calls these from the goroutine that owns it; the sharded
// cache calls them under a shard lock, from many goroutines at once.
type Metrics interface {
	Hit()
	Miss()
	// Evict is called once per entry leaving the cache.
	Evict(reason EvictReason)
	// EvictBatch is called once per eviction episode with the number of
	// entries it removed.
	EvictBatch(n int)
}

// Options configures both the single-owner engine (NewLFU) and the
// concurrent sharded cache (New). Capacity and EvictionCount are required;
// other zero values are safe and defaults are applied by the constructors:
//   - Shards <= 0 => auto (used by New only)
//   - nil Metrics => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the maximum number of resident entries. Required.
	// It also fixes the frequency ceiling at Capacity-1.
	Capacity int

	// EvictionCount is how many entries a single eviction episode removes.
	// Required (>= 1). Larger batches amortize the cursor scan over more
	// insertions.
	EvictionCount int

	// Shards defines the number of shards for New. If 0, an automatic value
	// is chosen (≈ 2*GOMAXPROCS rounded to a power of two), never more than
	// Capacity. LFU order is exact only within a shard; use Shards: 1 for a
	// single global frequency order.
	Shards int

	// Loader fetches a value on cache miss. Used by Cache.GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every entry removed by the policy, after it has
	// left the cache. In the sharded cache it runs under the shard lock and
	// must not call back into the cache.
	OnEvict func(k K, v V)

	Metrics Metrics
}

// withDefaults validates opt and fills in defaults.
func (opt Options[K, V]) withDefaults() (Options[K, V], error) {
	if opt.Capacity < 1 {
		return opt, ErrInvalidCapacity
	}
	if opt.EvictionCount < 1 {
		return opt, ErrInvalidEvictionCount
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return opt, nil
}
