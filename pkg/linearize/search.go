package linearize

import (
	"container/heap"
	"context"
	"encoding/binary"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
)

var errViolated = errors.New("constraint violated")

// searchState is one node of the cursor-vector lattice. States form a tree
// through parent; the chosen path is recovered by walking it back to the root.
type searchState struct {
	parent  *searchState
	cursors []int
	live    liveSet
	peak    float64
	seq     int
	depth   int
	serial  uint64
}

// steps returns the sequence advanced at each transition from the root.
func (st *searchState) steps() []int {
	steps := make([]int, st.depth)
	for cur := st; cur.parent != nil; cur = cur.parent {
		steps[cur.depth-1] = cur.seq
	}

	return steps
}

// frontier orders states by peak ascending, then depth descending, then insertion order.
type frontier []*searchState

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	a, b := f[i], f[j]
	if a.peak != b.peak {
		return a.peak < b.peak
	}

	if a.depth != b.depth {
		return a.depth > b.depth
	}

	return a.serial < b.serial
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) {
	st, ok := x.(*searchState)
	if !ok {
		return
	}

	*f = append(*f, st)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]

	return st
}

// scheduler interleaves sequences into a minimum-peak order. One scheduler
// serves every sub-search of a Linearize call so the state budget is shared.
type scheduler struct {
	ctx      context.Context
	g        *opgraph.Graph
	settings *settings
	stats    *Stats
}

// merge interleaves seqs and returns the merged order.
func (s *scheduler) merge(seqs [][]int) ([]int, error) {
	steps, _, err := s.search(seqs)
	if err != nil {
		return nil, err
	}

	return walkPath(seqs, steps), nil
}

// search returns the step list of the minimum-peak feasible interleaving of seqs and its peak.
func (s *scheduler) search(seqs [][]int) ([]int, float64, error) {
	s.stats.SubSearches++

	switch len(seqs) {
	case 0:
		return nil, 0, nil
	case 1:
		var (
			live  liveSet
			total float64
			peak  float64
		)

		for _, n := range seqs[0] {
			live, total = live.advance(s.g, n)
			peak = max(peak, total)
		}

		return make([]int, len(seqs[0])), peak, nil
	}

	index := indexConstraints(seqs, deriveConstraints(s.g, seqs))

	root := &searchState{cursors: make([]int, len(seqs)), seq: -1}
	for i := range root.cursors {
		root.cursors[i] = -1
	}

	target := 0
	for _, seq := range seqs {
		target += len(seq)
	}

	var (
		open    frontier
		serial  uint64
		visited = make(map[string]struct{})
		keyBuf  []byte
	)

	current := root

	for current.depth < target {
		if err := s.tick(); err != nil {
			return nil, 0, err
		}

		for i, seq := range seqs {
			pos := current.cursors[i] + 1
			if pos >= len(seq) {
				continue
			}

			cursors := make([]int, len(current.cursors))
			copy(cursors, current.cursors)
			cursors[i] = pos

			keyBuf = encodeCursors(keyBuf[:0], cursors)
			if _, seen := visited[string(keyBuf)]; seen {
				s.stats.Revisits++

				continue
			}

			visited[string(keyBuf)] = struct{}{}

			ok, err := s.feasible(index[i][pos], cursors)
			if err != nil {
				return nil, 0, err
			}

			if !ok {
				s.stats.Pruned++

				continue
			}

			live, total := current.live.advance(s.g, seq[pos])
			serial++

			heap.Push(&open, &searchState{
				parent:  current,
				cursors: cursors,
				live:    live,
				peak:    max(current.peak, total),
				seq:     i,
				depth:   current.depth + 1,
				serial:  serial,
			})

			s.stats.Generated++
		}

		s.stats.MaxFrontier = max(s.stats.MaxFrontier, open.Len())

		if open.Len() == 0 {
			if err := s.ctx.Err(); err != nil {
				return nil, 0, &Error{Kind: ErrCanceled, Err: err}
			}

			return nil, 0, failf(ErrInfeasibleSchedule,
				"%d sequences stuck after %d of %d steps", len(seqs), current.depth, target)
		}

		next, ok := heap.Pop(&open).(*searchState)
		if !ok {
			return nil, 0, failf(ErrInfeasibleSchedule, "corrupt frontier")
		}

		current = next
	}

	return current.steps(), current.peak, nil
}

// tick counts one expansion against the budget and polls the context.
func (s *scheduler) tick() error {
	if s.settings.maxStates > 0 && s.stats.Expanded >= s.settings.maxStates {
		return failf(ErrSearchBudgetExceeded, "expanded %d states", s.stats.Expanded)
	}

	if s.stats.Expanded%cancelCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			return &Error{Kind: ErrCanceled, Err: err}
		}
	}

	s.stats.Expanded++

	return nil
}

// feasible reports whether every constraint on the slot holds for cursors.
// An error means the check was canceled before it could decide.
func (s *scheduler) feasible(constraints []*Constraint, cursors []int) (bool, error) {
	threshold := s.settings.parallelThreshold
	if threshold == 0 || len(constraints) <= threshold {
		for _, c := range constraints {
			if !c.satisfiedBy(cursors) {
				return false, nil
			}
		}

		return true, nil
	}

	return feasibleParallel(s.ctx, constraints, cursors)
}

func feasibleParallel(ctx context.Context, constraints []*Constraint, cursors []int) (bool, error) {
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(constraints) + workers - 1) / workers

	grp, grpCtx := errgroup.WithContext(ctx)

	for lo := 0; lo < len(constraints); lo += chunk {
		part := constraints[lo:min(lo+chunk, len(constraints))]

		grp.Go(func() error {
			for _, c := range part {
				if err := grpCtx.Err(); err != nil {
					return err
				}

				if !c.satisfiedBy(cursors) {
					return errViolated
				}
			}

			return nil
		})
	}

	err := grp.Wait()

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errViolated):
		return false, nil
	default:
		return false, &Error{Kind: ErrCanceled, Err: err}
	}
}

// encodeCursors appends a compact key for a cursor vector.
func encodeCursors(buf []byte, cursors []int) []byte {
	for _, c := range cursors {
		buf = binary.AppendVarint(buf, int64(c))
	}

	return buf
}
