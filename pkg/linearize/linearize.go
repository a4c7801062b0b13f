// Package linearize orders the operators of a DAG so that the peak memory held
// by live intermediates stays low.
//
// The resource-aware strategy decomposes the graph into operator chains and
// interleaves them with a best-first search over cursor vectors. Each search
// state records how far every chain has been consumed; a state is expanded by
// advancing one chain, subject to the cross-chain dependency constraints, and
// the frontier always pops the state with the smallest peak so far. The first
// complete state popped is the schedule.
package linearize

import (
	"context"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// Stats describes the work done by one resource-aware linearization.
type Stats struct {
	// Sequences is the number of top-level sequences interleaved by the final search.
	Sequences int `json:"sequences" yaml:"sequences"`
	// SubSearches counts scheduler invocations, including merges of sibling chains.
	SubSearches int `json:"sub_searches" yaml:"sub_searches"`
	// Expanded counts states popped from a frontier.
	Expanded int `json:"expanded" yaml:"expanded"`
	// Generated counts feasible successor states pushed onto a frontier.
	Generated int `json:"generated" yaml:"generated"`
	// Pruned counts successor states rejected by a constraint.
	Pruned int `json:"pruned" yaml:"pruned"`
	// Revisits counts successor states skipped because their cursor vector was seen.
	Revisits int `json:"revisits" yaml:"revisits"`
	// MaxFrontier is the largest frontier observed.
	MaxFrontier int `json:"max_frontier" yaml:"max_frontier"`
}

// Result is a linearized graph.
type Result struct {
	Graph    *opgraph.Graph
	Strategy string
	// Order lists dense node indices in execution order.
	Order []int
	// Profile holds the live memory after each position of Order.
	Profile []float64
	Peak    float64
	Stats   Stats
	Elapsed time.Duration
}

// IDs returns the order as node ids.
func (r *Result) IDs() []int64 {
	return r.Graph.IDs(r.Order)
}

// Linearize computes a resource-aware order of g.
func Linearize(ctx context.Context, g *opgraph.Graph, opts ...Option) (*Result, error) {
	s := newSettings(opts)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "dagline.linearize",
		trace.WithAttributes(
			attribute.String("dagline.strategy", StrategyResourceAware),
			attribute.Int("dagline.nodes", g.Len()),
		))
	defer span.End()

	res, err := linearize(ctx, g, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Float64("dagline.peak", res.Peak),
		attribute.Int("dagline.states.expanded", res.Stats.Expanded),
	)

	s.logger.DebugContext(ctx, "linearized graph",
		"nodes", g.Len(),
		"sequences", res.Stats.Sequences,
		"sub_searches", res.Stats.SubSearches,
		"expanded", res.Stats.Expanded,
		"peak", res.Peak,
		"elapsed", res.Elapsed)

	return res, nil
}

func linearize(ctx context.Context, g *opgraph.Graph, s *settings) (*Result, error) {
	stats := Stats{}
	sched := &scheduler{ctx: ctx, g: g, settings: s, stats: &stats}

	_, extractSpan := s.tracer.Start(ctx, "dagline.extract")

	seqs, err := newExtractor(g, sched).extractAll()

	extractSpan.SetAttributes(attribute.Int("dagline.sequences", len(seqs)))
	extractSpan.End()

	if err != nil {
		return nil, err
	}

	stats.Sequences = len(seqs)

	_, searchSpan := s.tracer.Start(ctx, "dagline.search")

	steps, peak, err := sched.search(seqs)

	searchSpan.End()

	if err != nil {
		return nil, err
	}

	order := walkPath(seqs, steps)
	if validateErr := Validate(g, order); validateErr != nil {
		return nil, &Error{Kind: ErrMalformedGraph, Msg: "extracted order is not a linearization", Err: validateErr}
	}

	return &Result{
		Graph:    g,
		Strategy: StrategyResourceAware,
		Order:    order,
		Profile:  MemoryProfile(g, order),
		Peak:     peak,
		Stats:    stats,
	}, nil
}

// newResult builds a Result for an order produced by a baseline strategy.
func newResult(g *opgraph.Graph, strategy string, order []int, start time.Time) (*Result, error) {
	if err := Validate(g, order); err != nil {
		return nil, &Error{Kind: ErrMalformedGraph, Msg: strategy, Err: err}
	}

	profile := MemoryProfile(g, order)

	return &Result{
		Graph:    g,
		Strategy: strategy,
		Order:    slices.Clip(order),
		Profile:  profile,
		Peak:     Peak(profile),
		Elapsed:  time.Since(start),
	}, nil
}
