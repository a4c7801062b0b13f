package linearize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// Strategy names.
const (
	StrategyResourceAware = "resource-aware"
	StrategyBreadthFirst  = "breadth-first"
	StrategyDepthFirst    = "depth-first"
)

// Strategy produces an operator order for a graph.
type Strategy interface {
	Name() string
	Linearize(ctx context.Context, g *opgraph.Graph) (*Result, error)
}

// Strategies returns the registered strategy names, default first.
func Strategies() []string {
	return []string{StrategyResourceAware, StrategyBreadthFirst, StrategyDepthFirst}
}

// Lookup returns the strategy registered under name. Options apply to the
// resource-aware strategy only.
func Lookup(name string, opts ...Option) (Strategy, error) {
	switch name {
	case StrategyResourceAware, "":
		return ResourceAware{Options: opts}, nil
	case StrategyBreadthFirst:
		return BreadthFirst{}, nil
	case StrategyDepthFirst:
		return DepthFirst{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownStrategy, name, strings.Join(Strategies(), ", "))
	}
}

// ResourceAware minimizes peak live memory. See Linearize.
type ResourceAware struct {
	Options []Option
}

// Name implements Strategy.
func (ResourceAware) Name() string { return StrategyResourceAware }

// Linearize implements Strategy.
func (r ResourceAware) Linearize(ctx context.Context, g *opgraph.Graph) (*Result, error) {
	return Linearize(ctx, g, r.Options...)
}

// BreadthFirst emits nodes level by level: Kahn's algorithm with the lowest
// ready index first.
type BreadthFirst struct{}

// Name implements Strategy.
func (BreadthFirst) Name() string { return StrategyBreadthFirst }

// Linearize implements Strategy.
func (BreadthFirst) Linearize(_ context.Context, g *opgraph.Graph) (*Result, error) {
	start := time.Now()

	order, ok := g.Dependencies().TopoSort()
	if !ok {
		return nil, failf(ErrMalformedGraph, "graph is not acyclic")
	}

	return newResult(g, StrategyBreadthFirst, order, start)
}

// DepthFirst emits each terminal right after its producers, visiting
// terminals in graph order.
type DepthFirst struct{}

// Name implements Strategy.
func (DepthFirst) Name() string { return StrategyDepthFirst }

// Linearize implements Strategy.
func (DepthFirst) Linearize(ctx context.Context, g *opgraph.Graph) (*Result, error) {
	start := time.Now()
	visited := bitset.New(uint(g.Len()))
	order := make([]int, 0, g.Len())

	var visit func(n int)

	visit = func(n int) {
		if visited.Test(uint(n)) {
			return
		}

		visited.Set(uint(n))

		for _, p := range g.Inputs(n) {
			visit(p)
		}

		order = append(order, n)
	}

	for _, t := range g.Terminals() {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: ErrCanceled, Err: err}
		}

		visit(t)
	}

	// Every node of a DAG reaches a terminal; this only matters for a malformed graph.
	for n := range g.Len() {
		visit(n)
	}

	return newResult(g, StrategyDepthFirst, order, start)
}

// Compare runs every registered strategy on g, in Strategies order.
func Compare(ctx context.Context, g *opgraph.Graph, opts ...Option) ([]*Result, error) {
	names := Strategies()
	results := make([]*Result, 0, len(names))

	for _, name := range names {
		strategy, err := Lookup(name, opts...)
		if err != nil {
			return nil, err
		}

		res, err := strategy.Linearize(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		results = append(results, res)
	}

	return results, nil
}
