package linearize

import (
	"fmt"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// MemoryProfile returns, for each position p of order, the memory held right
// after order[p] runs: the output of order[p] plus every earlier output that
// still has a consumer later in the order. Outputs without consumers are held
// only at their own step.
func MemoryProfile(g *opgraph.Graph, order []int) []float64 {
	profile := make([]float64, len(order))

	var live liveSet

	for k, n := range order {
		live, profile[k] = live.advance(g, n)
	}

	return profile
}

// Peak returns the largest value of a memory profile.
func Peak(profile []float64) float64 {
	peak := 0.0
	for _, v := range profile {
		peak = max(peak, v)
	}

	return peak
}

// Validate checks that order lists every node of g exactly once and that every
// producer precedes its consumers.
func Validate(g *opgraph.Graph, order []int) error {
	if len(order) != g.Len() {
		return fmt.Errorf("%w: %d of %d nodes scheduled", ErrInvalidOrder, len(order), g.Len())
	}

	position := make([]int, g.Len())
	for i := range position {
		position[i] = -1
	}

	for k, n := range order {
		if n < 0 || n >= g.Len() {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidOrder, n)
		}

		if position[n] >= 0 {
			return fmt.Errorf("%w: node %d scheduled twice", ErrInvalidOrder, g.Node(n).ID)
		}

		position[n] = k
	}

	for k, n := range order {
		for _, p := range g.Inputs(n) {
			if position[p] > k {
				return fmt.Errorf("%w: node %d runs before its input %d",
					ErrInvalidOrder, g.Node(n).ID, g.Node(p).ID)
			}
		}
	}

	return nil
}
