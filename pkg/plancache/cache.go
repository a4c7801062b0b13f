// Package plancache keeps linearization results keyed by graph fingerprint,
// in memory and optionally as compressed files on disk.
package plancache

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/Sumatoshi-tech/dagline/pkg/alg/lru"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
	"github.com/Sumatoshi-tech/dagline/pkg/persist"
)

// DefaultMaxEntries is the in-memory capacity used when Options leaves it unset.
const DefaultMaxEntries = 128

// ErrStale reports a cached plan that does not fit the graph it was looked up for.
var ErrStale = errors.New("stale cached plan")

// Entry is the stored form of a linearization result.
type Entry struct {
	Strategy string
	IDs      []int64
	Profile  []float64
	Stats    linearize.Stats
	Peak     float64
}

func newEntry(res *linearize.Result) *Entry {
	return &Entry{
		Strategy: res.Strategy,
		IDs:      res.IDs(),
		Profile:  slices.Clone(res.Profile),
		Stats:    res.Stats,
		Peak:     res.Peak,
	}
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.IDs = slices.Clone(e.IDs)
	c.Profile = slices.Clone(e.Profile)

	return &c
}

// Result maps the entry back onto g and checks it is still a valid order.
func (e *Entry) Result(g *opgraph.Graph) (*linearize.Result, error) {
	if len(e.IDs) != g.Len() || len(e.Profile) != len(e.IDs) {
		return nil, fmt.Errorf("%w: %d ids for %d nodes", ErrStale, len(e.IDs), g.Len())
	}

	order := make([]int, len(e.IDs))

	for k, id := range e.IDs {
		idx, ok := g.Index(id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown node %d", ErrStale, id)
		}

		order[k] = idx
	}

	if err := linearize.Validate(g, order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStale, err)
	}

	return &linearize.Result{
		Graph:    g,
		Strategy: e.Strategy,
		Order:    order,
		Profile:  slices.Clone(e.Profile),
		Peak:     e.Peak,
		Stats:    e.Stats,
	}, nil
}

// Options configures a Cache.
type Options struct {
	Logger *slog.Logger
	// Dir holds the on-disk tier. Empty keeps the cache in memory only.
	Dir        string
	MaxEntries int
}

// Tier names where a lookup was answered.
type Tier string

// Lookup tiers.
const (
	TierMemory Tier = "memory"
	TierDisk   Tier = "disk"
	TierMiss   Tier = "miss"
)

// Stats counts lookups.
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
	Entries    int
	Evictions  int64
}

// Cache is a two-tier plan cache. It is safe for concurrent use.
type Cache struct {
	mem    *lru.Cache[string, *Entry]
	disk   *persist.Persister[Entry]
	logger *slog.Logger

	memHits  atomic.Int64
	diskHits atomic.Int64
	misses   atomic.Int64
}

// New creates a Cache.
func New(opts Options) *Cache {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		mem: lru.New(
			lru.WithMaxEntries[string, *Entry](maxEntries),
			lru.WithCloneFunc[string, *Entry](cloneEntry),
		),
		logger: logger,
	}

	if opts.Dir != "" {
		c.disk = persist.NewPersister[Entry](opts.Dir, persist.NewLZ4Codec(persist.NewGobCodec()))
	}

	return c
}

// Get returns the cached plan for key mapped onto g.
func (c *Cache) Get(key string, g *opgraph.Graph) (*linearize.Result, bool) {
	res, tier := c.Lookup(key, g)

	return res, tier != TierMiss
}

// Lookup is Get that also reports which tier answered. Unreadable or stale
// entries are dropped and reported as misses.
func (c *Cache) Lookup(key string, g *opgraph.Graph) (*linearize.Result, Tier) {
	if e, ok := c.mem.Get(key); ok {
		res, err := e.Result(g)
		if err == nil {
			c.memHits.Add(1)

			return res, TierMemory
		}

		c.logger.Warn("dropping cached plan", "key", key, "error", err)
		c.mem.Remove(key)
	}

	if c.disk == nil {
		c.misses.Add(1)

		return nil, TierMiss
	}

	e, found, err := c.disk.Load(key)
	if err != nil {
		c.logger.Warn("plan cache read failed", "key", key, "error", err)
		c.drop(key)
	}

	if !found {
		c.misses.Add(1)

		return nil, TierMiss
	}

	res, resErr := e.Result(g)
	if resErr != nil {
		c.logger.Warn("dropping cached plan", "key", key, "error", resErr)
		c.drop(key)
		c.misses.Add(1)

		return nil, TierMiss
	}

	c.mem.Put(key, e)
	c.diskHits.Add(1)

	return res, TierDisk
}

// Put stores res under key in both tiers.
func (c *Cache) Put(key string, res *linearize.Result) error {
	e := newEntry(res)
	c.mem.Put(key, e)

	if c.disk == nil {
		return nil
	}

	if err := c.disk.Save(key, e); err != nil {
		return fmt.Errorf("plan cache write: %w", err)
	}

	return nil
}

// Stats returns lookup counters.
func (c *Cache) Stats() Stats {
	mem := c.mem.Stats()

	return Stats{
		MemoryHits: c.memHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
		Entries:    mem.Entries,
		Evictions:  mem.Evictions,
	}
}

func (c *Cache) drop(key string) {
	if err := c.disk.Remove(key); err != nil {
		c.logger.Warn("plan cache cleanup failed", "key", key, "error", err)
	}
}
