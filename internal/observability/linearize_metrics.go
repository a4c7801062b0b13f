package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
)

const (
	metricRunsTotal        = "dagline.linearize.runs.total"
	metricRunDuration      = "dagline.linearize.duration.seconds"
	metricPeakMemory       = "dagline.linearize.peak.bytes"
	metricStatesExpanded   = "dagline.linearize.states.expanded"
	metricStatesPruned     = "dagline.linearize.states.pruned.total"
	metricCacheLookups     = "dagline.plancache.lookups.total"
	metricCacheHitsTotal   = "dagline.plancache.hits.total"
	metricCacheMissesTotal = "dagline.plancache.misses.total"

	attrStrategy = "strategy"
	attrTier     = "tier"
)

// peakBucketBoundaries spans 1 KiB to 64 GiB in powers of eight.
var peakBucketBoundaries = []float64{1 << 10, 1 << 13, 1 << 16, 1 << 19, 1 << 22, 1 << 25, 1 << 28, 1 << 31, 1 << 34, 1 << 36}

// stateBucketBoundaries spans a single expansion to the default search budget.
var stateBucketBoundaries = []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 2_000_000}

// LinearizeMetrics holds instruments describing linearization runs and plan cache lookups.
type LinearizeMetrics struct {
	runsTotal      metric.Int64Counter
	runDuration    metric.Float64Histogram
	peakMemory     metric.Float64Histogram
	statesExpanded metric.Float64Histogram
	statesPruned   metric.Int64Counter
	cacheLookups   metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
}

// NewLinearizeMetrics creates linearization instruments from the given meter.
func NewLinearizeMetrics(mt metric.Meter) (*LinearizeMetrics, error) {
	b := newMetricBuilder(mt)

	lm := &LinearizeMetrics{
		runsTotal:      b.counter(metricRunsTotal, "Linearization runs by strategy and status", "{run}"),
		runDuration:    b.histogram(metricRunDuration, "Linearization wall time in seconds", "s", durationBucketBoundaries...),
		peakMemory:     b.histogram(metricPeakMemory, "Peak live memory of produced orders", "By", peakBucketBoundaries...),
		statesExpanded: b.histogram(metricStatesExpanded, "Search states expanded per run", "{state}", stateBucketBoundaries...),
		statesPruned:   b.counter(metricStatesPruned, "Search candidates rejected as infeasible", "{state}"),
		cacheLookups:   b.counter(metricCacheLookups, "Plan cache lookups", "{lookup}"),
		cacheHits:      b.counter(metricCacheHitsTotal, "Plan cache hits by tier", "{hit}"),
		cacheMisses:    b.counter(metricCacheMissesTotal, "Plan cache misses", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return lm, nil
}

// RecordRun records one computed linearization, or a failed attempt when
// res is nil. Safe on a nil receiver.
func (lm *LinearizeMetrics) RecordRun(ctx context.Context, strategy string, res *linearize.Result, err error) {
	if lm == nil {
		return
	}

	strategyAttr := attribute.String(attrStrategy, strategy)

	lm.runsTotal.Add(ctx, 1, metric.WithAttributes(strategyAttr, attribute.String(attrStatus, Status(err))))

	if res == nil {
		return
	}

	attrs := metric.WithAttributes(strategyAttr)

	lm.runDuration.Record(ctx, res.Elapsed.Seconds(), attrs)
	lm.peakMemory.Record(ctx, res.Peak, attrs)

	if res.Strategy == linearize.StrategyResourceAware {
		lm.statesExpanded.Record(ctx, float64(res.Stats.Expanded), attrs)
		lm.statesPruned.Add(ctx, int64(res.Stats.Pruned), attrs)
	}
}

// RecordCacheLookup records one plan cache lookup. Safe on a nil receiver.
func (lm *LinearizeMetrics) RecordCacheLookup(ctx context.Context, tier plancache.Tier) {
	if lm == nil {
		return
	}

	lm.cacheLookups.Add(ctx, 1)

	if tier == plancache.TierMiss {
		lm.cacheMisses.Add(ctx, 1)

		return
	}

	lm.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTier, string(tier))))
}
