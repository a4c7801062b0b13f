// Package planner runs linearization strategies behind the plan cache and
// records their metrics. It is shared by the CLI and the MCP server.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
)

// Options configures a Planner.
type Options struct {
	// Cache holds computed plans. Nil disables caching.
	Cache   *plancache.Cache
	Metrics *observability.LinearizeMetrics
	Logger  *slog.Logger
	// Search is passed to the resource-aware strategy.
	Search []linearize.Option
	// MaxStates is part of the cache key, so it must match the budget in Search.
	MaxStates int
}

// Planner computes plans.
type Planner struct {
	cache     *plancache.Cache
	metrics   *observability.LinearizeMetrics
	logger    *slog.Logger
	search    []linearize.Option
	maxStates int
}

// Plan is a computed or cached linearization.
type Plan struct {
	*linearize.Result

	// Tier reports where a cached plan came from. Empty when caching is off.
	Tier plancache.Tier
}

// Cached reports whether the plan was served from the cache.
func (p *Plan) Cached() bool {
	return p.Tier == plancache.TierMemory || p.Tier == plancache.TierDisk
}

// New creates a Planner.
func New(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Planner{
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		logger:    logger,
		search:    append(slices.Clone(opts.Search), linearize.WithLogger(logger)),
		maxStates: opts.MaxStates,
	}
}

// WithMaxStates returns a copy of p with a different search budget.
func (p *Planner) WithMaxStates(n int) *Planner {
	c := *p
	c.search = append(slices.Clone(p.search), linearize.WithMaxStates(n))
	c.maxStates = n

	return &c
}

// Plan linearizes g with the named strategy. An empty name selects the
// resource-aware strategy.
func (p *Planner) Plan(ctx context.Context, g *opgraph.Graph, strategyName string) (*Plan, error) {
	strategy, err := linearize.Lookup(strategyName, p.search...)
	if err != nil {
		return nil, err
	}

	name := strategy.Name()

	var key string

	if p.cache != nil {
		key = plancache.Key(g, name, p.maxStates)

		res, tier := p.cache.Lookup(key, g)
		p.metrics.RecordCacheLookup(ctx, tier)

		if res != nil {
			p.logger.DebugContext(ctx, "plan cache hit", "strategy", name, "tier", tier)

			return &Plan{Result: res, Tier: tier}, nil
		}
	}

	res, err := strategy.Linearize(ctx, g)
	p.metrics.RecordRun(ctx, name, res, err)

	if err != nil {
		return nil, err
	}

	plan := &Plan{Result: res}

	if p.cache != nil {
		plan.Tier = plancache.TierMiss

		if putErr := p.cache.Put(key, res); putErr != nil {
			p.logger.WarnContext(ctx, "plan cache write failed", "strategy", name, "error", putErr)
		}
	}

	return plan, nil
}

// Compare plans g with every registered strategy, in linearize.Strategies order.
func (p *Planner) Compare(ctx context.Context, g *opgraph.Graph) ([]*Plan, error) {
	names := linearize.Strategies()
	plans := make([]*Plan, 0, len(names))

	for _, name := range names {
		plan, err := p.Plan(ctx, g, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		plans = append(plans, plan)
	}

	return plans, nil
}

// Results unwraps plans.
func Results(plans []*Plan) []*linearize.Result {
	out := make([]*linearize.Result, len(plans))
	for k, plan := range plans {
		out[k] = plan.Result
	}

	return out
}
