package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newSingleShard[K comparable, V any](t *testing.T, capacity, evictionCount int) Cache[K, V] {
	t.Helper()
	c, err := New[K, V](Options[K, V]{Capacity: capacity, EvictionCount: evictionCount, Shards: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_NewRejectsInvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := New[string, int](Options[string, int]{EvictionCount: 1})
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New[string, int](Options[string, int]{Capacity: 8})
	require.ErrorIs(t, err, ErrInvalidEvictionCount)

	require.Panics(t, func() { MustNew[string, int](Options[string, int]{}) })
}

// Capacity is split across shards without exceeding the total.
func TestCache_ShardCapacitySumsToCapacity(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ capacity, shards, want int }{
		{capacity: 10, shards: 4, want: 4},
		{capacity: 3, shards: 8, want: 3},
		{capacity: 1, shards: 0, want: 1},
		{capacity: 1000, shards: 3, want: 4},
	} {
		c, err := New[int, int](Options[int, int]{Capacity: tc.capacity, EvictionCount: 1, Shards: tc.shards})
		require.NoError(t, err)
		require.Equal(t, tc.capacity, c.Cap())
		require.Len(t, c.(*cache[int, int]).shards, tc.want)

		for i := 0; i < 4*tc.capacity; i++ {
			c.Put(i, i)
			require.LessOrEqual(t, c.Len(), tc.capacity)
		}
	}
}

// Basic Put/Get/Remove semantics.
func TestCache_BasicPutGetRemove(t *testing.T) {
	t.Parallel()

	c := MustNew[string, int](Options[string, int]{Capacity: 8, EvictionCount: 1})
	t.Cleanup(func() { _ = c.Close() })

	_, replaced := c.Put("a", 1)
	require.False(t, replaced)
	prev, replaced := c.Put("a", 11)
	require.True(t, replaced)
	require.Equal(t, 1, prev)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 11, v)
	require.Equal(t, 2, c.Frequency("a"))

	v, ok = c.Remove("a")
	require.True(t, ok)
	require.Equal(t, 11, v)
	_, ok = c.Get("a")
	require.False(t, ok)
	require.Zero(t, c.Frequency("a"))
}

// With one shard the wrapper is the engine's exact LFU order.
func TestCache_SingleShardEviction(t *testing.T) {
	t.Parallel()

	t.Run("batch of one", func(t *testing.T) {
		c := newSingleShard[int, bool](t, 2, 1)
		c.Put(1, true)
		c.Put(2, true)
		c.Put(3, true)
		require.Zero(t, c.Frequency(1))
		require.Equal(t, 1, c.Frequency(2))
		require.Equal(t, 1, c.Frequency(3))
	})

	t.Run("batch of two", func(t *testing.T) {
		c := newSingleShard[int, bool](t, 2, 2)
		c.Put(1, true)
		c.Put(2, true)
		c.Put(3, true)
		require.Equal(t, 1, c.Len())
		_, ok := c.Get(3)
		require.True(t, ok)
	})

	t.Run("least frequent batch", func(t *testing.T) {
		c := newSingleShard[int, bool](t, 4, 2)
		for k := 1; k <= 4; k++ {
			c.Put(k, true)
		}
		c.Get(1)
		c.Get(1)
		c.Get(3)
		c.Put(5, true)
		for _, k := range []int{1, 3, 5} {
			_, ok := c.Get(k)
			require.True(t, ok, "key %d must survive", k)
		}
		require.Equal(t, uint64(2), c.Stats().Evictions)
	})
}

func TestCache_GetOrPut(t *testing.T) {
	t.Parallel()

	c := newSingleShard[string, int](t, 4, 1)
	calls := 0
	supply := func() (int, bool) { calls++; return 7, true }

	for i := 0; i < 2; i++ {
		v, ok := c.GetOrPut("k", supply)
		require.True(t, ok)
		require.Equal(t, 7, v)
	}
	require.Equal(t, 1, calls)

	st := c.Stats()
	require.Equal(t, int64(1), st.Hits)
	require.Equal(t, int64(1), st.Misses)
	require.Equal(t, 1, st.Entries)
}

func TestCache_StatsAndOnEvict(t *testing.T) {
	t.Parallel()

	var evicted atomic.Int64
	c := MustNew[int, int](Options[int, int]{
		Capacity:      2,
		EvictionCount: 1,
		Shards:        1,
		OnEvict:       func(int, int) { evicted.Add(1) },
	})
	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(3, 3)
	c.Get(3)
	c.Get(1)

	st := c.Stats()
	require.Equal(t, int64(1), st.Hits)
	require.Equal(t, int64(1), st.Misses)
	require.Equal(t, uint64(1), st.Evictions)
	require.Equal(t, 2, st.Entries)
	require.Equal(t, int64(1), evicted.Load())
}

func TestCache_Close(t *testing.T) {
	t.Parallel()

	c := MustNew[string, int](Options[string, int]{
		Capacity:      4,
		EvictionCount: 1,
		Loader:        func(context.Context, string) (int, error) { return 1, nil },
	})
	c.Put("a", 1)
	require.NoError(t, c.Close())

	_, ok := c.Get("a")
	require.False(t, ok)
	_, replaced := c.Put("a", 2)
	require.False(t, replaced)
	_, err := c.GetOrLoad(context.Background(), "a")
	require.ErrorIs(t, err, ErrClosed)
}

func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := newSingleShard[string, int](t, 4, 1)
	_, err := c.GetOrLoad(context.Background(), "k")
	require.ErrorIs(t, err, ErrNoLoader)
}

// Loader errors are returned and nothing is cached.
func TestCache_GetOrLoad_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int64
	c := MustNew[string, string](Options[string, string]{
		Capacity:      4,
		EvictionCount: 1,
		Loader: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "", boom
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(context.Background(), "k")
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, int64(2), calls.Load())
	require.Zero(t, c.Len())
}

// Concurrent GetOrLoad calls for the same key trigger the Loader once;
// subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls atomic.Int64

	release := make(chan struct{})
	c := MustNew[string, string](Options[string, string]{
		Capacity:      64,
		EvictionCount: 4,
		Loader: func(_ context.Context, k string) (string, error) {
			calls.Add(1)
			<-release // hold the flight open until every caller has joined
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var started sync.WaitGroup
	started.Add(N)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			started.Done()
			v, err := c.GetOrLoad(gctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond) // let the goroutines reach the flight
	close(release)
	require.NoError(t, g.Wait())

	require.Equal(t, int64(1), calls.Load(), "loader must run exactly once")

	v, err := c.GetOrLoad(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v:k", v)
}

type countingMetrics struct {
	hits, misses atomic.Int64
}

func (m *countingMetrics) Hit() { m.hits.Add(1) }
func (m *countingMetrics) Miss() { m.misses.Add(1) }
func (m *countingMetrics) Evict(EvictReason) {}
func (m *countingMetrics) EvictBatch(int) {}

// A loading GetOrLoad is one miss; the next call for the key is one hit.
func TestCache_GetOrLoad_CountsOnce(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	c := MustNew[string, string](Options[string, string]{
		Capacity:      4,
		EvictionCount: 1,
		Shards:        1,
		Metrics:       m,
		Loader: func(_ context.Context, k string) (string, error) {
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	v, err := c.GetOrLoad(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v:k", v)

	st := c.Stats()
	require.Equal(t, int64(1), st.Misses)
	require.Zero(t, st.Hits)
	require.Equal(t, int64(1), m.misses.Load())
	require.Zero(t, m.hits.Load())
	require.Equal(t, 1, c.Frequency("k"), "a load must not promote the entry")

	_, err = c.GetOrLoad(context.Background(), "k")
	require.NoError(t, err)

	st = c.Stats()
	require.Equal(t, int64(1), st.Misses)
	require.Equal(t, int64(1), st.Hits)
	require.Equal(t, int64(1), m.misses.Load())
	require.Equal(t, int64(1), m.hits.Load())
	require.Equal(t, 2, c.Frequency("k"))
}

// A load whose caller's context ends while the Loader runs is not stored.
func TestCache_GetOrLoad_Abandoned(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := MustNew[string, string](Options[string, string]{
		Capacity:      4,
		EvictionCount: 1,
		Shards:        1,
		Loader: func(_ context.Context, k string) (string, error) {
			if calls.Add(1) == 1 {
				cancel()
			}
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.GetOrLoad(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, c.Len())
	require.Zero(t, c.Frequency("k"))

	v, err := c.GetOrLoad(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v:k", v)
	require.Equal(t, int64(2), calls.Load())
	require.Equal(t, 1, c.Len())
}
