package toposort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/dagline/pkg/toposort"
)

func TestIntGraph_Basic(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(3)
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
	assert.Equal(t, 2, graph.EdgeCount())
}

func TestIntGraph_DuplicateEdge(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(2)
	assert.True(t, graph.AddEdge(0, 1))
	assert.False(t, graph.AddEdge(0, 1))
	assert.Equal(t, 1, graph.InDegree(1))
	assert.Equal(t, []int{1}, graph.Successors(0))
}

func TestIntGraph_Cycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(2)
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 0)

	sorted, ok := graph.TopoSort()
	assert.False(t, ok)
	assert.Empty(t, sorted)
}

func TestIntGraph_Complex(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(4)
	// 3 -> 0.
	// 3 -> 1.
	// 0 -> 2.
	// 1 -> 2.
	graph.AddEdge(3, 0)
	graph.AddEdge(3, 1)
	graph.AddEdge(0, 2)
	graph.AddEdge(1, 2)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)
	assert.Equal(t, []int{3, 0, 1, 2}, sorted)
}

func TestIntGraph_Disconnected(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(0)
	graph.Grow(3)
	graph.AddEdge(0, 1)

	sorted, ok := graph.TopoSort()
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
}

func TestIntGraph_FindCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(3)
	// 0 -> 1 -> 2 -> 0.
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)
	graph.AddEdge(2, 0)

	assert.Equal(t, []int{0, 1, 2, 0}, graph.FindCycle(0))
	assert.Nil(t, graph.FindCycle(7))
}

func TestIntGraph_AnyCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewIntGraph(5)
	// 0 -> 1, 1 -> 2 -> 3 -> 1, 3 -> 4.
	graph.AddEdge(0, 1)
	graph.AddEdge(1, 2)
	graph.AddEdge(2, 3)
	graph.AddEdge(3, 1)
	graph.AddEdge(3, 4)

	assert.Equal(t, []int{1, 2, 3, 1}, graph.AnyCycle())

	acyclic := toposort.NewIntGraph(2)
	acyclic.AddEdge(0, 1)
	assert.Nil(t, acyclic.AnyCycle())
}
