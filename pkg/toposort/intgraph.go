// Package toposort provides a dense integer DAG with deterministic Kahn ordering
// and cycle witnesses, plus a symbol table mapping external keys to dense ids.
package toposort

import "sort"

// IntGraph is a directed graph over the dense ids 0..n-1.
// An edge u -> v means u must be ordered before v.
type IntGraph struct {
	// succ is an adjacency list where succ[u] holds every v of an edge u -> v.
	succ [][]int
	// inDegree stores the number of incoming edges for each node.
	inDegree []int
	edges    int
}

// NewIntGraph creates a graph with n isolated nodes.
func NewIntGraph(n int) *IntGraph {
	return &IntGraph{
		succ:     make([][]int, n),
		inDegree: make([]int, n),
	}
}

// Len returns the number of nodes.
func (g *IntGraph) Len() int {
	return len(g.succ)
}

// EdgeCount returns the number of distinct edges.
func (g *IntGraph) EdgeCount() int {
	return g.edges
}

// Grow extends the graph so it holds at least n nodes.
func (g *IntGraph) Grow(n int) {
	if n <= len(g.succ) {
		return
	}

	succ := make([][]int, n)
	copy(succ, g.succ)
	g.succ = succ

	inDegree := make([]int, n)
	copy(inDegree, g.inDegree)
	g.inDegree = inDegree
}

// AddEdge adds the edge u -> v, growing the graph when needed.
// Returns false if the edge already existed.
func (g *IntGraph) AddEdge(u, v int) bool {
	g.Grow(max(u, v) + 1)

	for _, w := range g.succ[u] {
		if w == v {
			return false
		}
	}

	g.succ[u] = append(g.succ[u], v)
	g.inDegree[v]++
	g.edges++

	return true
}

// Successors returns the targets of u's outgoing edges in insertion order.
// The returned slice must not be modified.
func (g *IntGraph) Successors(u int) []int {
	if u < 0 || u >= len(g.succ) {
		return nil
	}

	return g.succ[u]
}

// InDegree returns the number of incoming edges of u.
func (g *IntGraph) InDegree(u int) int {
	if u < 0 || u >= len(g.inDegree) {
		return 0
	}

	return g.inDegree[u]
}

// TopoSort orders the nodes with Kahn's algorithm, always releasing the lowest
// ready id first so the result is deterministic.
// The boolean is false when a cycle keeps some nodes from being ordered; the
// returned slice then holds only the nodes that could be ordered.
func (g *IntGraph) TopoSort() ([]int, bool) {
	n := len(g.succ)

	inDegree := make([]int, n)
	copy(inDegree, g.inDegree)

	ready := make([]int, 0)

	for u := range n {
		if inDegree[u] == 0 {
			ready = append(ready, u)
		}
	}

	order := make([]int, 0, n)

	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		order = append(order, u)

		for _, v := range g.succ[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				insertSorted(&ready, v)
			}
		}
	}

	return order, len(order) == n
}

// FindCycle returns a cycle through start as start -> ... -> start,
// or nil when start is not on a cycle.
func (g *IntGraph) FindCycle(start int) []int {
	if start < 0 || start >= len(g.succ) {
		return nil
	}

	parent := map[int]int{start: -1}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		for _, v := range g.succ[u] {
			if v == start {
				cycle := []int{start}
				for cur := u; cur != start && cur != -1; cur = parent[cur] {
					cycle = append(cycle, cur)
				}

				cycle = append(cycle, start)
				reverse(cycle)

				return cycle
			}

			if _, seen := parent[v]; !seen {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return nil
}

// AnyCycle returns one cycle witness, or nil if the graph is acyclic.
// Candidates are the nodes Kahn's algorithm could not order, tried lowest id first.
func (g *IntGraph) AnyCycle() []int {
	order, ok := g.TopoSort()
	if ok {
		return nil
	}

	ordered := make([]bool, len(g.succ))
	for _, u := range order {
		ordered[u] = true
	}

	for u := range g.succ {
		if ordered[u] {
			continue
		}

		cycle := g.FindCycle(u)
		if cycle != nil {
			return cycle
		}
	}

	return nil
}

// insertSorted inserts v into the sorted slice s.
func insertSorted(s *[]int, v int) {
	i := sort.SearchInts(*s, v)
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = v
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
