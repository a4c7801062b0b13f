package lru_test

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dagline/pkg/alg/lru"
)

const (
	// testMaxEntries is the default max entries.
	testMaxEntries = 100

	// smallMaxEntries limits the cache to 3 entries for eviction tests.
	smallMaxEntries = 3

	// testConcurrentGoroutines is the number of goroutines for concurrency tests.
	testConcurrentGoroutines = 50

	// testConcurrentOps is the number of operations per goroutine.
	testConcurrentOps = 100
)

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[string, int](testMaxEntries))

	// Get on empty cache returns zero value, false.
	got, found := cache.Get("a1f0")
	assert.False(t, found)
	assert.Zero(t, got)

	cache.Put("a1f0", 42)

	got, found = cache.Get("a1f0")
	require.True(t, found)
	assert.Equal(t, 42, got)
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	// Access key 1 to make it recently used.
	cache.Get(1)

	// Adding key 4 should evict key 2 (LRU).
	cache.Put(4, "d")

	_, found := cache.Get(2)
	assert.False(t, found, "key 2 should be evicted (LRU)")

	for _, key := range []int{1, 3, 4} {
		_, found = cache.Get(key)
		assert.True(t, found, "key %d should still exist", key)
	}

	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCache_DuplicatePut(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](testMaxEntries))

	cache.Put(1, "first")
	cache.Put(1, "second")

	got, found := cache.Get(1)
	require.True(t, found)
	assert.Equal(t, "second", got, "duplicate Put should update value")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Remove(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	assert.True(t, cache.Remove(2))
	assert.False(t, cache.Remove(2))
	assert.Equal(t, 2, cache.Len())

	// The freed slot is reused without evicting.
	cache.Put(4, "d")

	_, found := cache.Get(1)
	assert.True(t, found)
	assert.Zero(t, cache.Stats().Evictions)
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](testMaxEntries))

	cache.Put(1, "a")
	cache.Put(2, "b")
	assert.Equal(t, 2, cache.Len())

	cache.Clear()

	assert.Equal(t, 0, cache.Len())

	_, found := cache.Get(1)
	assert.False(t, found)
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](testMaxEntries))

	cache.Put(1, "a")
	cache.Get(1) // Hit.
	cache.Get(2) // Miss.

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, testMaxEntries, stats.MaxEntries)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestStats_HitRate_Empty(t *testing.T) {
	t.Parallel()

	stats := lru.Stats{}
	assert.InDelta(t, 0.0, stats.HitRate(), 0.001)
}

func TestCache_CloneFunc(t *testing.T) {
	t.Parallel()

	cloneFn := func(v []int) []int {
		return append([]int(nil), v...)
	}

	cache := lru.New(
		lru.WithMaxEntries[string, []int](testMaxEntries),
		lru.WithCloneFunc[string, []int](cloneFn),
	)

	original := []int{3, 1, 2}
	cache.Put("order", original)

	// Modifying original should not affect cached value.
	original[0] = 99

	got, found := cache.Get("order")
	require.True(t, found)
	assert.Equal(t, []int{3, 1, 2}, got)

	// Modifying a returned value should not affect cached value either.
	got[1] = 99

	again, _ := cache.Get("order")
	assert.Equal(t, []int{3, 1, 2}, again)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[string, int](testMaxEntries))

	var wg sync.WaitGroup

	wg.Add(testConcurrentGoroutines)

	for g := range testConcurrentGoroutines {
		go func(id int) {
			defer wg.Done()

			for i := range testConcurrentOps {
				key := strconv.Itoa((id*testConcurrentOps + i) % (2 * testMaxEntries))
				cache.Put(key, i)
				cache.Get(key)
			}
		}(g)
	}

	wg.Wait()

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.Entries, testMaxEntries)
	assert.Positive(t, stats.Entries)
}

func TestCache_PanicsWithoutCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		lru.New[int, string]()
	})
}
