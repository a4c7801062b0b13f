package linearize

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

func newTestScheduler(g *opgraph.Graph, opts ...Option) *scheduler {
	return &scheduler{ctx: context.Background(), g: g, settings: newSettings(opts), stats: &Stats{}}
}

func mustBuild(t *testing.T, add func(b *opgraph.Builder) error) *opgraph.Graph {
	t.Helper()

	b := opgraph.NewBuilder()
	require.NoError(t, add(b))

	g, err := b.Build()
	require.NoError(t, err)

	return g
}

func randomTestGraph(t *testing.T, seed uint64, n int) *opgraph.Graph {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed+1))

	return mustBuild(t, func(b *opgraph.Builder) error {
		for i := range n {
			var inputs []int64

			if i > 0 {
				for range rng.IntN(3) {
					inputs = append(inputs, int64(rng.IntN(i)+1))
				}
			}

			if err := b.Add(int64(i+1), "", float64(rng.IntN(8)+1), inputs...); err != nil {
				return err
			}
		}

		return nil
	})
}

func TestSearch_CrossedSequencesAreInfeasible(t *testing.T) {
	t.Parallel()

	// A -> B and C -> D, offered as [B C] and [D A].
	g := mustBuild(t, func(b *opgraph.Builder) error {
		for _, err := range []error{
			b.Add(1, "A", 1),
			b.Add(2, "B", 1, 1),
			b.Add(3, "C", 1),
			b.Add(4, "D", 1, 3),
		} {
			if err != nil {
				return err
			}
		}

		return nil
	})

	_, _, err := newTestScheduler(g).search([][]int{{1, 2}, {3, 0}})
	require.ErrorIs(t, err, ErrInfeasibleSchedule)
}

func TestSearch_FastPaths(t *testing.T) {
	t.Parallel()

	g := mustBuild(t, func(b *opgraph.Builder) error {
		if err := b.Add(1, "A", 2); err != nil {
			return err
		}

		return b.Add(2, "B", 3, 1)
	})

	s := newTestScheduler(g)

	steps, peak, err := s.search(nil)
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.Zero(t, peak)

	steps, peak, err = s.search([][]int{{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, steps)
	assert.InDelta(t, 3.0, peak, 0)
	assert.Zero(t, s.stats.Expanded)
}

func TestExtract_DiamondMergesBranches(t *testing.T) {
	t.Parallel()

	g := mustBuild(t, func(b *opgraph.Builder) error {
		for _, err := range []error{
			b.Add(1, "S", 1),
			b.Add(2, "A", 5, 1),
			b.Add(3, "B", 3, 1),
			b.Add(4, "T", 1, 2, 3),
		} {
			if err != nil {
				return err
			}
		}

		return nil
	})

	seqs, err := newExtractor(g, newTestScheduler(g)).extractAll()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2, 1, 3}}, seqs)
}

func chainGraph(t *testing.T) *opgraph.Graph {
	t.Helper()

	return mustBuild(t, func(b *opgraph.Builder) error {
		for _, err := range []error{
			b.Add(1, "a", 1),
			b.Add(2, "b", 1, 1),
			b.Add(3, "c", 1, 2),
		} {
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func TestExtract_NodeReachedTwice(t *testing.T) {
	t.Parallel()

	g := chainGraph(t)
	e := newExtractor(g, newTestScheduler(g))

	require.NoError(t, e.assign(0))
	require.ErrorIs(t, e.assign(0), ErrMalformedGraph)
	require.ErrorIs(t, e.assign(-1), ErrMalformedGraph)
	require.ErrorIs(t, e.assign(g.Len()), ErrMalformedGraph)
}

// A node marked assigned without being placed in a sequence leaves the
// extractor with nothing to extract for it.
func TestExtractAll_UncoveredNodeFailsFast(t *testing.T) {
	t.Parallel()

	g := chainGraph(t)

	lost := newExtractor(g, newTestScheduler(g))
	lost.assigned.Set(1)

	_, err := lost.extractAll()
	require.ErrorIs(t, err, ErrMalformedGraph)

	dropped := newExtractor(g, newTestScheduler(g))
	dropped.assigned.Set(1)
	dropped.remaining--

	_, err = dropped.extractAll()
	require.ErrorIs(t, err, ErrMalformedGraph)
	assert.Contains(t, err.Error(), "sequences cover 2 of 3 nodes")
}

func TestDeriveConstraints_Deduplicates(t *testing.T) {
	t.Parallel()

	// X read twice by the entry node of the second sequence.
	g := mustBuild(t, func(b *opgraph.Builder) error {
		if err := b.Add(1, "X", 1); err != nil {
			return err
		}

		return b.Add(2, "XX", 1, 1, 1)
	})

	constraints := deriveConstraints(g, [][]int{{0}, {1}})
	require.Len(t, constraints, 1)
	assert.Equal(t, Constraint{Seq: 1, Pos: 0, Requires: []int{0, NoRequirement}}, constraints[0])
}

// A slot check on a vector reached from a fully feasible predecessor must agree
// with checking every consumed slot of the vector.
func TestFeasibility_SlotCheckMatchesFullCheck(t *testing.T) {
	t.Parallel()

	for seed := range uint64(40) {
		g := randomTestGraph(t, seed, 10)
		s := newTestScheduler(g)

		seqs, err := newExtractor(g, s).extractAll()
		require.NoError(t, err)

		index := indexConstraints(seqs, deriveConstraints(g, seqs))

		vectorFeasible := func(cursors []int) bool {
			for j := range seqs {
				for pos := 0; pos <= cursors[j]; pos++ {
					for _, c := range index[j][pos] {
						if !c.satisfiedBy(cursors) {
							return false
						}
					}
				}
			}

			return true
		}

		root := make([]int, len(seqs))
		for i := range root {
			root[i] = -1
		}

		queue := [][]int{root}
		seen := map[string]bool{string(encodeCursors(nil, root)): true}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]

			for i := range seqs {
				if v[i]+1 >= len(seqs[i]) {
					continue
				}

				next := append([]int(nil), v...)
				next[i]++

				slotOK, err := s.feasible(index[i][next[i]], next)
				require.NoError(t, err)
				require.Equal(t, vectorFeasible(next), slotOK, "seed %d vector %v", seed, next)

				key := string(encodeCursors(nil, next))
				if slotOK && !seen[key] {
					seen[key] = true
					queue = append(queue, next)
				}
			}
		}
	}
}

func TestFeasibleParallel(t *testing.T) {
	t.Parallel()

	constraints := make([]*Constraint, 100)
	for k := range constraints {
		constraints[k] = &Constraint{Seq: 0, Pos: 0, Requires: []int{NoRequirement, k % 5}}
	}

	ok, err := feasibleParallel(context.Background(), constraints, []int{0, 4})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = feasibleParallel(context.Background(), constraints, []int{0, 3})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeasibleParallel_CanceledIsNotAViolation(t *testing.T) {
	t.Parallel()

	constraints := make([]*Constraint, 100)
	for k := range constraints {
		constraints[k] = &Constraint{Seq: 0, Pos: 0, Requires: []int{NoRequirement, 0}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feasibleParallel(ctx, constraints, []int{0, 4})
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)

	s := newTestScheduler(nil, WithParallelThreshold(1))
	s.ctx = ctx

	ok, err := s.feasible(constraints, []int{0, 4})
	require.ErrorIs(t, err, ErrCanceled)
	assert.False(t, ok)
}

func TestFrontier_TieBreaks(t *testing.T) {
	t.Parallel()

	f := frontier{
		{peak: 2, depth: 5, serial: 1},
		{peak: 1, depth: 1, serial: 2},
		{peak: 1, depth: 3, serial: 4},
		{peak: 1, depth: 3, serial: 3},
	}

	assert.True(t, f.Less(1, 0))
	assert.True(t, f.Less(2, 1))
	assert.True(t, f.Less(3, 2))
}

func TestWalkPath(t *testing.T) {
	t.Parallel()

	order := walkPath([][]int{{10, 11}, {20}}, []int{0, 1, 0})
	assert.Equal(t, []int{10, 20, 11}, order)
}
