package linearize

import "github.com/Sumatoshi-tech/dagline/pkg/opgraph"

// NoRequirement marks a sequence a constraint places no demand on.
const NoRequirement = -1

// Constraint gates the slot Pos of sequence Seq: it may be consumed only once
// every sequence j has advanced its cursor to at least Requires[j].
type Constraint struct {
	Requires []int
	Seq      int
	Pos      int
}

// satisfiedBy reports whether the cursor vector meets every requirement.
// The constraint's own sequence is skipped.
func (c *Constraint) satisfiedBy(cursors []int) bool {
	for j, req := range c.Requires {
		if j == c.Seq || req == NoRequirement {
			continue
		}

		if cursors[j] < req {
			return false
		}
	}

	return true
}

type slot struct {
	seq int
	pos int
}

// dependency identifies a single-requirement constraint for deduplication.
type dependency struct {
	at   slot
	need slot
}

// deriveConstraints produces the cross-sequence constraints for seqs:
// the first node of a sequence waits for producers in other sequences,
// every node waits for its producers in other sequences, and the final node of a
// sequence ending at a terminal waits for the previous such sequence to finish.
func deriveConstraints(g *opgraph.Graph, seqs [][]int) []Constraint {
	where := make(map[int]slot)

	for i, seq := range seqs {
		for k, n := range seq {
			where[n] = slot{seq: i, pos: k}
		}
	}

	var out []Constraint

	seen := make(map[dependency]struct{})
	add := func(at, need slot) {
		key := dependency{at: at, need: need}
		if _, dup := seen[key]; dup {
			return
		}

		seen[key] = struct{}{}

		requires := make([]int, len(seqs))
		for j := range requires {
			requires[j] = NoRequirement
		}

		requires[need.seq] = need.pos
		out = append(out, Constraint{Seq: at.seq, Pos: at.pos, Requires: requires})
	}

	lastTerminal := -1

	for i, seq := range seqs {
		for _, p := range g.Inputs(seq[0]) {
			if need, ok := where[p]; ok && need.seq != i {
				add(slot{seq: i, pos: 0}, need)
			}
		}

		for k, n := range seq {
			for _, p := range g.Inputs(n) {
				if need, ok := where[p]; ok && need.seq != i {
					add(slot{seq: i, pos: k}, need)
				}
			}
		}

		last := len(seq) - 1
		if !g.Node(seq[last]).IsTerminal() {
			continue
		}

		if lastTerminal >= 0 {
			add(slot{seq: i, pos: last}, slot{seq: lastTerminal, pos: len(seqs[lastTerminal]) - 1})
		}

		lastTerminal = i
	}

	return out
}

// indexConstraints groups constraints by the slot they gate.
func indexConstraints(seqs [][]int, constraints []Constraint) [][][]*Constraint {
	index := make([][][]*Constraint, len(seqs))
	for i, seq := range seqs {
		index[i] = make([][]*Constraint, len(seq))
	}

	for k := range constraints {
		c := &constraints[k]
		index[c.Seq][c.Pos] = append(index[c.Seq][c.Pos], c)
	}

	return index
}
