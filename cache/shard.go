package cache

import (
	"sync"

	"github.com/IvanBrykalov/lfucache/internal/util"
)

// shard is an independent partition of the cache: one LFU engine guarded
// by its own lock. Get mutates frequency state, so there is no read lock.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu  sync.Mutex
	lfu *LFU[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// newShard builds a shard holding capacity entries. The engine's OnEvict
// is wrapped so the shard can count evictions before the user callback runs.
func newShard[K comparable, V any](capacity int, opt Options[K, V]) *shard[K, V] {
	s := &shard[K, V]{}
	userEvict := opt.OnEvict
	opt.Capacity = capacity
	opt.OnEvict = func(k K, v V) {
		s.evicts.Add(1)
		if userEvict != nil {
			userEvict(k, v)
		}
	}
	// opt was validated by New and capacity >= 1 by construction.
	s.lfu = MustNewLFU[K, V](opt)
	return s
}

func (s *shard[K, V]) Put(k K, v V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfu.Put(k, v)
}

func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	v, ok := s.lfu.Get(k)
	s.mu.Unlock()
	s.record(ok)
	return v, ok
}

// peek looks k up without counting it or changing its frequency.
func (s *shard[K, V]) peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfu.peek(k)
}

func (s *shard[K, V]) GetOrPut(k K, supply func() (V, bool)) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hit := true
	v, ok := s.lfu.GetOrPut(k, func() (V, bool) {
		hit = false
		return supply()
	})
	s.record(hit)
	return v, ok
}

func (s *shard[K, V]) Remove(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfu.Remove(k)
}

func (s *shard[K, V]) Frequency(k K) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfu.Frequency(k)
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfu.Len()
}

func (s *shard[K, V]) Cap() int { return s.lfu.Cap() }

func (s *shard[K, V]) record(hit bool) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
}
