package plancache_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
)

func diamond(t *testing.T, sinkMemory float64) *opgraph.Graph {
	t.Helper()

	b := opgraph.NewBuilder()
	require.NoError(t, b.Add(1, "S", 1))
	require.NoError(t, b.Add(2, "A", 5, 1))
	require.NoError(t, b.Add(3, "B", 3, 1))
	require.NoError(t, b.Add(4, "T", sinkMemory, 2, 3))

	g, err := b.Build()
	require.NoError(t, err)

	return g
}

func TestKey_ChangesWithGraphAndSettings(t *testing.T) {
	t.Parallel()

	g := diamond(t, 1)

	assert.Equal(t, plancache.Key(g, "resource-aware", 10), plancache.Key(diamond(t, 1), "resource-aware", 10))
	assert.NotEqual(t, plancache.Key(g, "resource-aware", 10), plancache.Key(diamond(t, 2), "resource-aware", 10))
	assert.NotEqual(t, plancache.Key(g, "resource-aware", 10), plancache.Key(g, "depth-first", 10))
	assert.NotEqual(t, plancache.Key(g, "resource-aware", 10), plancache.Key(g, "resource-aware", 11))
}

func TestCache_MemoryTier(t *testing.T) {
	t.Parallel()

	g := diamond(t, 1)
	cache := plancache.New(plancache.Options{MaxEntries: 4})
	key := plancache.Key(g, linearize.StrategyResourceAware, 0)

	_, ok := cache.Get(key, g)
	assert.False(t, ok)

	res, err := linearize.Linearize(context.Background(), g)
	require.NoError(t, err)
	require.NoError(t, cache.Put(key, res))

	cached, ok := cache.Get(key, g)
	require.True(t, ok)
	assert.Equal(t, res.Order, cached.Order)
	assert.Equal(t, res.Profile, cached.Profile)
	assert.InDelta(t, res.Peak, cached.Peak, 0)
	assert.Equal(t, res.Stats, cached.Stats)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_DiskTierSurvivesRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := diamond(t, 1)
	key := plancache.Key(g, linearize.StrategyResourceAware, 0)

	res, err := linearize.Linearize(context.Background(), g)
	require.NoError(t, err)
	require.NoError(t, plancache.New(plancache.Options{Dir: dir}).Put(key, res))

	fresh := plancache.New(plancache.Options{Dir: dir})

	cached, ok := fresh.Get(key, g)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 3, 2, 4}, cached.IDs())
	assert.Equal(t, int64(1), fresh.Stats().DiskHits)

	// Promoted to memory.
	_, ok = fresh.Get(key, g)
	require.True(t, ok)
	assert.Equal(t, int64(1), fresh.Stats().MemoryHits)
}

func TestCache_CorruptFileIsAMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := diamond(t, 1)
	key := plancache.Key(g, linearize.StrategyResourceAware, 0)

	path := dir + "/" + key + ".gob.lz4"
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	cache := plancache.New(plancache.Options{Dir: dir})

	_, ok := cache.Get(key, g)
	assert.False(t, ok)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEntry_ResultRejectsStalePlans(t *testing.T) {
	t.Parallel()

	g := diamond(t, 1)

	stale := &plancache.Entry{IDs: []int64{1, 2, 3}, Profile: []float64{1, 2, 3}}
	_, err := stale.Result(g)
	require.ErrorIs(t, err, plancache.ErrStale)

	unknown := &plancache.Entry{IDs: []int64{1, 2, 3, 9}, Profile: []float64{1, 2, 3, 4}}
	_, err = unknown.Result(g)
	require.ErrorIs(t, err, plancache.ErrStale)

	misordered := &plancache.Entry{IDs: []int64{4, 3, 2, 1}, Profile: []float64{1, 2, 3, 4}}
	_, err = misordered.Result(g)
	require.ErrorIs(t, err, plancache.ErrStale)
	require.ErrorIs(t, err, linearize.ErrInvalidOrder)
}

func TestCache_StaleMemoryEntryIsDropped(t *testing.T) {
	t.Parallel()

	g := diamond(t, 1)
	cache := plancache.New(plancache.Options{})

	res, err := linearize.Linearize(context.Background(), g)
	require.NoError(t, err)
	require.NoError(t, cache.Put("k", res))

	other := diamond(t, 1)
	b := opgraph.NewBuilder()
	require.NoError(t, b.Add(1, "S", 1))

	small, err := b.Build()
	require.NoError(t, err)

	_, ok := cache.Get("k", small)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Entries)

	_, ok = cache.Get("k", other)
	assert.False(t, ok)
}

func TestCache_LookupReportsTier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := diamond(t, 1)
	key := plancache.Key(g, linearize.StrategyResourceAware, 0)

	res, err := linearize.Linearize(context.Background(), g)
	require.NoError(t, err)

	warm := plancache.New(plancache.Options{Dir: dir})

	_, tier := warm.Lookup(key, g)
	assert.Equal(t, plancache.TierMiss, tier)

	require.NoError(t, warm.Put(key, res))

	_, tier = warm.Lookup(key, g)
	assert.Equal(t, plancache.TierMemory, tier)

	_, tier = plancache.New(plancache.Options{Dir: dir}).Lookup(key, g)
	assert.Equal(t, plancache.TierDisk, tier)
}
