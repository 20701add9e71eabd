package cache

import (
	"context"
	"fmt"
)

// LFU is a fixed-capacity least-frequently-used cache with an LRU
// tie-break between entries of equal frequency.
//
// Every operation, eviction included, is amortized O(1): entries live in an
// array of frequency buckets indexed 0..Capacity-1, and a cursor tracks the
// lowest non-empty bucket. Frequencies saturate at Capacity-1; hits on a
// saturated entry only move it to the back of the top bucket.
//
// LFU is not safe for concurrent use. Wrap it in a lock, or use New for the
// sharded, goroutine-safe Cache.
type LFU[K comparable, V any] struct {
	items   map[K]*node[K, V]
	buckets []bucket[K, V] // index = frequency
	minFreq int            // lowest non-empty bucket; 0 when empty

	capacity      int
	evictionCount int

	onEvict func(K, V)
	metrics Metrics
}

// NewLFU constructs a single-owner engine. Capacity and EvictionCount must
// both be at least 1; Shards and Loader are ignored.
func NewLFU[K comparable, V any](opt Options[K, V]) (*LFU[K, V], error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	return &LFU[K, V]{
		items:         make(map[K]*node[K, V], opt.Capacity),
		buckets:       make([]bucket[K, V], opt.Capacity),
		capacity:      opt.Capacity,
		evictionCount: opt.EvictionCount,
		onEvict:       opt.OnEvict,
		metrics:       opt.Metrics,
	}, nil
}

// MustNewLFU is like NewLFU but panics on invalid options.
func MustNewLFU[K comparable, V any](opt Options[K, V]) *LFU[K, V] {
	c, err := NewLFU[K, V](opt)
	if err != nil {
		panic(err)
	}
	return c
}

// Put stores v under k. For a resident key the value is replaced in place
// and the previous value is returned with replaced=true; its frequency is
// left alone. A new key enters at the lowest frequency, evicting one batch
// first if the cache is full.
func (c *LFU[K, V]) Put(k K, v V) (prev V, replaced bool) {
	if n, ok := c.items[k]; ok {
		prev, n.val = n.val, v
		return prev, true
	}

	if len(c.items) >= c.capacity {
		c.evict()
	}

	n := &node[K, V]{key: k, val: v}
	c.items[k] = n
	c.buckets[0].pushBack(n)
	c.minFreq = 0
	return prev, false
}

// Get returns the value for k and bumps its frequency by one, up to the
// ceiling. At the ceiling the entry becomes the most recent of its bucket.
func (c *LFU[K, V]) Get(k K) (V, bool) {
	n, ok := c.items[k]
	if !ok {
		c.metrics.Miss()
		var zero V
		return zero, false
	}
	c.touch(n)
	c.metrics.Hit()
	return n.val, true
}

// GetOrPut returns the cached value for k. On a miss it calls supply once;
// if supply yields a value it is stored and returned, otherwise nothing is
// stored and ok is false.
func (c *LFU[K, V]) GetOrPut(k K, supply func() (V, bool)) (v V, ok bool) {
	if v, ok = c.Get(k); ok {
		return v, true
	}
	if v, ok = supply(); ok {
		c.Put(k, v)
	}
	return v, ok
}

// GetOrLoad is GetOrPut for a loader that may block. The cache is read
// before load runs and written after it returns, on the calling goroutine.
// Nothing is stored if load fails, reports no value, or ctx is done by the
// time it returns. Concurrent misses on the same key are not coalesced;
// use Cache.GetOrLoad for that.
func (c *LFU[K, V]) GetOrLoad(ctx context.Context, k K, load func(context.Context) (V, bool, error)) (V, bool, error) {
	if v, ok := c.Get(k); ok {
		return v, true, nil
	}
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, ok, err := load(ctx)
	if err != nil {
		return zero, false, err
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	c.Put(k, v)
	return v, true, nil
}

// Remove deletes k and returns its value, or ok=false if it was absent.
func (c *LFU[K, V]) Remove(k K) (V, bool) {
	n, ok := c.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.items, k)
	c.buckets[n.freq].remove(n)
	if n.freq == c.minFreq && c.buckets[n.freq].len == 0 {
		c.advanceMin()
	}
	c.metrics.Evict(EvictRemoved)
	return n.val, true
}

// Frequency reports the 1-based access frequency of k (a fresh entry
// reports 1), or 0 if k is not resident. It does not count as an access.
func (c *LFU[K, V]) Frequency(k K) int {
	if n, ok := c.items[k]; ok {
		return n.freq + 1
	}
	return 0
}

// peek returns the value for k without promoting it or reporting a hit/miss.
func (c *LFU[K, V]) peek(k K) (V, bool) {
	if n, ok := c.items[k]; ok {
		return n.val, true
	}
	var zero V
	return zero, false
}

// Len returns the number of resident entries.
func (c *LFU[K, V]) Len() int { return len(c.items) }

// Cap returns the fixed capacity.
func (c *LFU[K, V]) Cap() int { return c.capacity }

// Keys returns the resident keys in eviction order: ascending frequency,
// oldest first within a frequency. It is O(Capacity) and does not count as
// an access.
func (c *LFU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for f := c.minFreq; f < len(c.buckets) && len(keys) < len(c.items); f++ {
		for n := c.buckets[f].front(); n != nil; n = n.next {
			keys = append(keys, n.key)
		}
	}
	return keys
}

// -------------------- internals --------------------

func (c *LFU[K, V]) maxFreq() int { return c.capacity - 1 }

// touch records one access to n.
func (c *LFU[K, V]) touch(n *node[K, V]) {
	old := n.freq
	if old >= c.maxFreq() {
		c.buckets[old].moveToBack(n)
		return
	}
	c.buckets[old].remove(n)
	n.freq++
	c.buckets[n.freq].pushBack(n)
	// Promotion moves the lowest frequency up by exactly one step at most.
	if old == c.minFreq && c.buckets[old].len == 0 {
		c.minFreq = n.freq
	}
}

// advanceMin moves the cursor to the next non-empty bucket above it,
// wrapping to 0 when the cache is empty.
func (c *LFU[K, V]) advanceMin() {
	for f := c.minFreq + 1; f <= c.maxFreq(); f++ {
		if c.buckets[f].len > 0 {
			c.minFreq = f
			return
		}
	}
	c.minFreq = 0
}

// evict removes one batch of entries, lowest frequency first and oldest
// first within a frequency. The quota is clamped to the resident count.
func (c *LFU[K, V]) evict() {
	remaining := min(c.evictionCount, len(c.items))
	evicted := 0
	for remaining > 0 {
		b := &c.buckets[c.minFreq]
		if b.len == 0 {
			panic(fmt.Errorf("%w: lowest-frequency cursor %d points at an empty bucket (%d entries resident)",
				ErrCorrupted, c.minFreq, len(c.items)))
		}
		for n := min(remaining, b.len); n > 0; n-- {
			victim := b.front()
			b.remove(victim)
			delete(c.items, victim.key)
			remaining--
			evicted++
			c.metrics.Evict(EvictPolicy)
			if c.onEvict != nil {
				c.onEvict(victim.key, victim.val)
			}
		}
		if b.len == 0 {
			c.advanceMin()
		}
	}
	c.metrics.EvictBatch(evicted)
}
