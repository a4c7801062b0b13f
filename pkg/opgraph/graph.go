// Package opgraph holds the operator DAG consumed by the linearizer.
//
// Nodes live in an arena and reference each other by dense index, so the graph
// has no pointer cycles and per-node bookkeeping can use plain slices or bitsets.
// A Graph is immutable once built; build it with a Builder.
package opgraph

import "github.com/Sumatoshi-tech/dagline/pkg/toposort"

// Node is one physical operator.
type Node struct {
	// Name is a human-readable label, usually the variable the operator writes.
	Name string
	// Op is the operator opcode, for display only.
	Op string
	// Inputs are the dense indices of the producers, in operand order.
	// A producer appears twice when the operator reads it twice.
	Inputs []int
	// Outputs are the dense indices of the consumers, deduplicated, in graph order.
	Outputs []int
	// ID is the caller's stable identity for the node.
	ID int64
	// Level is the topological depth: sources are 0.
	Level int
	// OutputMemory is the estimated size of the node's output in bytes.
	OutputMemory float64
}

// IsTerminal reports whether nothing consumes the node's output.
func (n *Node) IsTerminal() bool {
	return len(n.Outputs) == 0
}

// Graph is an immutable operator DAG.
type Graph struct {
	ids   *toposort.SymbolTable[int64]
	nodes []Node
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node at dense index i. The node must not be modified.
func (g *Graph) Node(i int) *Node {
	return &g.nodes[i]
}

// Index returns the dense index of the node with the given id.
func (g *Graph) Index(id int64) (int, bool) {
	return g.ids.Lookup(id)
}

// Inputs returns the producers of node i.
func (g *Graph) Inputs(i int) []int {
	return g.nodes[i].Inputs
}

// Outputs returns the consumers of node i.
func (g *Graph) Outputs(i int) []int {
	return g.nodes[i].Outputs
}

// Terminals returns the nodes without consumers, in graph order.
func (g *Graph) Terminals() []int {
	var terminals []int

	for i := range g.nodes {
		if g.nodes[i].IsTerminal() {
			terminals = append(terminals, i)
		}
	}

	return terminals
}

// IDs maps dense indices to node ids.
func (g *Graph) IDs(indices []int) []int64 {
	ids := make([]int64, len(indices))
	for k, i := range indices {
		ids[k] = g.nodes[i].ID
	}

	return ids
}

// Dependencies returns the graph as a toposort.IntGraph with an edge from every
// producer to each of its consumers.
func (g *Graph) Dependencies() *toposort.IntGraph {
	deps := toposort.NewIntGraph(len(g.nodes))

	for i := range g.nodes {
		for _, p := range g.nodes[i].Inputs {
			deps.AddEdge(p, i)
		}
	}

	return deps
}
