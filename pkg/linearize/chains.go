package linearize

import (
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

// extractor decomposes a graph into disjoint operator sequences. Linear
// producer chains become one sequence each; where a node has several
// producers, their sub-chains are merged by the scheduler first.
type extractor struct {
	g         *opgraph.Graph
	sched     *scheduler
	assigned  *bitset.BitSet
	remaining int
}

func newExtractor(g *opgraph.Graph, sched *scheduler) *extractor {
	return &extractor{
		g:         g,
		sched:     sched,
		assigned:  bitset.New(uint(g.Len())),
		remaining: g.Len(),
	}
}

// extractAll returns one sequence per terminal in graph order, followed by
// sequences rooted at the deepest unassigned nodes until every node is covered.
func (e *extractor) extractAll() ([][]int, error) {
	var seqs [][]int

	for _, t := range e.g.Terminals() {
		if e.isAssigned(t) {
			continue
		}

		seq, err := e.extract(t)
		if err != nil {
			return nil, err
		}

		seqs = append(seqs, seq)
	}

	for e.remaining > 0 {
		seq, err := e.extract(e.deepestUnassigned())
		if err != nil {
			return nil, err
		}

		seqs = append(seqs, seq)
	}

	covered := 0
	for _, seq := range seqs {
		covered += len(seq)
	}

	if covered != e.g.Len() {
		return nil, failf(ErrMalformedGraph, "sequences cover %d of %d nodes", covered, e.g.Len())
	}

	return seqs, nil
}

// extract walks backward from start through single-producer edges, then
// resolves the multi-producer node it stopped at.
func (e *extractor) extract(start int) ([]int, error) {
	if err := e.assign(start); err != nil {
		return nil, err
	}

	chain := []int{start}
	cur := start

	for {
		inputs := e.g.Inputs(cur)
		if len(inputs) != 1 {
			break
		}

		p := inputs[0]
		if e.isAssigned(p) {
			slices.Reverse(chain)

			return chain, nil
		}

		if err := e.assign(p); err != nil {
			return nil, err
		}

		chain = append(chain, p)
		cur = p
	}

	slices.Reverse(chain)

	inputs := e.g.Inputs(cur)
	if len(inputs) == 0 {
		return chain, nil
	}

	var children [][]int

	for _, p := range inputs {
		if e.isAssigned(p) {
			continue
		}

		child, err := e.extract(p)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	merged, err := e.sched.merge(children)
	if err != nil {
		return nil, err
	}

	return append(merged, chain...), nil
}

// deepestUnassigned returns the first unassigned node with the highest level.
func (e *extractor) deepestUnassigned() int {
	best := -1
	n := uint(e.g.Len())

	for i, ok := e.assigned.NextClear(0); ok && i < n; i, ok = e.assigned.NextClear(i + 1) {
		if best < 0 || e.g.Node(int(i)).Level > e.g.Node(best).Level {
			best = int(i)
		}
	}

	return best
}

func (e *extractor) isAssigned(n int) bool {
	return e.assigned.Test(uint(n))
}

func (e *extractor) assign(n int) error {
	if n < 0 || n >= e.g.Len() {
		return failf(ErrMalformedGraph, "node index %d out of range", n)
	}

	if e.isAssigned(n) {
		return failf(ErrMalformedGraph, "node %d reached twice", e.g.Node(n).ID)
	}

	e.assigned.Set(uint(n))
	e.remaining--

	return nil
}
