package cache

import (
	"context"
	"sync/atomic"

	"github.com/IvanBrykalov/lfucache/internal/singleflight"
	"github.com/IvanBrykalov/lfucache/internal/util"
)

// cache is a sharded LFU store. All methods are safe for concurrent use.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	loader func(ctx context.Context, k K) (V, error)

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a sharded cache with the provided Options.
// Capacity is split across shards so that the per-shard capacities add up
// to exactly Capacity. Defaults:
//   - nil Metrics  -> NoopMetrics
//   - Shards <= 0  -> auto, rounded up to the next power of two
//   - more shards than Capacity -> clamped to Capacity
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}
	sh = min(sh, opt.Capacity)

	cs := make([]*shard[K, V], sh)
	for i, capacity := range util.SplitCapacity(opt.Capacity, sh) {
		cs[i] = newShard[K, V](capacity, opt)
	}

	return &cache[K, V]{
		shards: cs,
		hash:   util.Hash[K],
		loader: opt.Loader,
	}, nil
}

// MustNew is like New but panics on invalid options.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New[K, V](opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Put(k K, v V) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Put(k, v)
}

func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Get(k)
}

func (c *cache[K, V]) GetOrPut(k K, supply func() (V, bool)) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).GetOrPut(k, supply)
}

func (c *cache[K, V]) Remove(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Remove(k)
}

func (c *cache[K, V]) Frequency(k K) int {
	if c.closed.Load() {
		return 0
	}
	return c.getShard(k).Frequency(k)
}

func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

func (c *cache[K, V]) Cap() int {
	total := 0
	for _, s := range c.shards {
		total += s.Cap()
	}
	return total
}

func (c *cache[K, V]) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		st.Entries += s.Len()
	}
	return st
}

// Close marks the cache as closed. Future operations are ignored.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight). The loader
// runs outside any shard lock. Each call counts exactly one hit or miss.
// A load that finishes after the leader's ctx is done is not stored, and a
// caller whose ctx is done gets ctx.Err().
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	// fast path
	s := c.getShard(k)
	if v, ok := s.Get(k); ok {
		return v, nil
	}
	if c.loader == nil {
		return zero, ErrNoLoader
	}

	v, err := c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join; the miss is already counted
		if v, ok := s.peek(k); ok {
			return v, nil
		}
		v, err := c.loader(ctx, k)
		if err == nil && ctx.Err() == nil {
			c.Put(k, v)
		}
		return v, err
	})
	if err == nil && ctx.Err() != nil {
		return zero, ctx.Err()
	}
	return v, err
}

// ---- helpers ----

// getShard picks a shard by hashing the key.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}
