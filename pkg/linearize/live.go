package linearize

import (
	"slices"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// intermediate is an output held in memory until its last pending consumer runs.
// Instances are shared between search states and never mutated.
type intermediate struct {
	pending []int
	memory  float64
}

// liveSet is the ordered set of intermediates held after some prefix of an order.
type liveSet []*intermediate

// advance returns the live set after scheduling node, and its total memory.
// An intermediate whose last consumer is node is released; one that had no
// consumers left is released at the step after its producer. The scheduled
// node's own output is always counted at its step.
func (ls liveSet) advance(g *opgraph.Graph, node int) (liveSet, float64) {
	next := make(liveSet, 0, len(ls)+1)
	total := 0.0

	for _, im := range ls {
		if len(im.pending) == 0 {
			continue
		}

		if k := slices.Index(im.pending, node); k >= 0 {
			if len(im.pending) == 1 {
				continue
			}

			pending := make([]int, 0, len(im.pending)-1)
			pending = append(pending, im.pending[:k]...)
			pending = append(pending, im.pending[k+1:]...)
			im = &intermediate{pending: pending, memory: im.memory}
		}

		next = append(next, im)
		total += im.memory
	}

	n := g.Node(node)
	next = append(next, &intermediate{pending: n.Outputs, memory: n.OutputMemory})
	total += n.OutputMemory

	return next, total
}
