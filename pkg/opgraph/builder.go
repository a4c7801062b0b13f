package opgraph

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/dagline/pkg/toposort"
)

// Structural errors reported by Builder.
var (
	ErrDuplicateNode     = errors.New("duplicate node id")
	ErrDanglingReference = errors.New("input references unknown node")
	ErrNegativeMemory    = errors.New("output memory estimate must be a non-negative number")
	ErrNegativeLevel     = errors.New("level must be non-negative")
	ErrCycle             = errors.New("graph contains a cycle")
)

// NodeSpec describes a node to add to a Builder.
type NodeSpec struct {
	// Level is optional; nil lets Build derive it from the producers.
	Level        *int
	Name         string
	Op           string
	Inputs       []int64
	ID           int64
	OutputMemory float64
}

// Builder collects node specs and validates them into a Graph.
// Node order is the order of AddNode calls; it fixes the graph's enumeration order.
type Builder struct {
	ids   *toposort.SymbolTable[int64]
	specs []NodeSpec
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ids: toposort.NewSymbolTable[int64]()}
}

// AddNode appends a node. Inputs may reference nodes added later.
func (b *Builder) AddNode(spec NodeSpec) error {
	if _, exists := b.ids.Lookup(spec.ID); exists {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, spec.ID)
	}

	if spec.OutputMemory < 0 || math.IsNaN(spec.OutputMemory) || math.IsInf(spec.OutputMemory, 0) {
		return fmt.Errorf("%w: node %d has %v", ErrNegativeMemory, spec.ID, spec.OutputMemory)
	}

	if spec.Level != nil && *spec.Level < 0 {
		return fmt.Errorf("%w: node %d has %d", ErrNegativeLevel, spec.ID, *spec.Level)
	}

	b.ids.Intern(spec.ID)
	b.specs = append(b.specs, spec)

	return nil
}

// Add is a shorthand for AddNode with a derived level and no opcode.
func (b *Builder) Add(id int64, name string, memory float64, inputs ...int64) error {
	return b.AddNode(NodeSpec{ID: id, Name: name, OutputMemory: memory, Inputs: inputs})
}

// Build resolves references, rejects cycles, and derives consumers and missing levels.
func (b *Builder) Build() (*Graph, error) {
	nodes := make([]Node, len(b.specs))
	ids := toposort.NewSymbolTable[int64]()

	for i, spec := range b.specs {
		ids.Intern(spec.ID)

		inputs := make([]int, len(spec.Inputs))

		for k, inputID := range spec.Inputs {
			p, ok := b.ids.Lookup(inputID)
			if !ok {
				return nil, fmt.Errorf("%w: node %d reads %d", ErrDanglingReference, spec.ID, inputID)
			}

			inputs[k] = p
		}

		nodes[i] = Node{
			ID:           spec.ID,
			Name:         spec.Name,
			Op:           spec.Op,
			Inputs:       inputs,
			OutputMemory: spec.OutputMemory,
		}
	}

	for c := range nodes {
		for _, p := range nodes[c].Inputs {
			outs := nodes[p].Outputs
			if len(outs) > 0 && outs[len(outs)-1] == c {
				continue
			}

			nodes[p].Outputs = append(outs, c)
		}
	}

	g := &Graph{ids: ids, nodes: nodes}

	deps := g.Dependencies()

	order, acyclic := deps.TopoSort()
	if !acyclic {
		return nil, fmt.Errorf("%w: %s", ErrCycle, formatCycle(g, deps.AnyCycle()))
	}

	for _, i := range order {
		if lvl := b.specs[i].Level; lvl != nil {
			nodes[i].Level = *lvl

			continue
		}

		level := 0
		for _, p := range nodes[i].Inputs {
			level = max(level, nodes[p].Level+1)
		}

		nodes[i].Level = level
	}

	return g, nil
}

func formatCycle(g *Graph, cycle []int) string {
	parts := make([]string, len(cycle))
	for k, i := range cycle {
		parts[k] = strconv.FormatInt(g.nodes[i].ID, 10)
	}

	return strings.Join(parts, " -> ")
}
