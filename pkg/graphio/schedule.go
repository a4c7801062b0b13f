package graphio

import (
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// Schedule is the document written for a linearized graph.
type Schedule struct {
	Stats     *linearize.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Graph     string           `json:"graph"           yaml:"graph"`
	Strategy  string           `json:"strategy"        yaml:"strategy"`
	PeakHuman string           `json:"peak_human"      yaml:"peak_human"`
	Steps     []Step           `json:"steps"           yaml:"steps"`
	Peak      float64          `json:"peak"            yaml:"peak"`
}

// Step is one scheduled operator.
type Step struct {
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Op       string  `json:"op,omitempty"   yaml:"op,omitempty"`
	Position int     `json:"position"       yaml:"position"`
	ID       int64   `json:"id"             yaml:"id"`
	Memory   float64 `json:"memory"         yaml:"memory"`
	Live     float64 `json:"live"           yaml:"live"`
}

// NewSchedule builds the schedule document of res. Stats are included only for
// the resource-aware strategy.
func NewSchedule(graphName string, res *linearize.Result) *Schedule {
	sched := &Schedule{
		Graph:     graphName,
		Strategy:  res.Strategy,
		Peak:      res.Peak,
		PeakHuman: FormatBytes(res.Peak),
		Steps:     make([]Step, len(res.Order)),
	}

	if res.Strategy == linearize.StrategyResourceAware {
		stats := res.Stats
		sched.Stats = &stats
	}

	for k, i := range res.Order {
		n := res.Graph.Node(i)

		sched.Steps[k] = Step{
			Position: k,
			ID:       n.ID,
			Name:     n.Name,
			Op:       n.Op,
			Memory:   n.OutputMemory,
			Live:     res.Profile[k],
		}
	}

	return sched
}

// IDs returns the scheduled node ids in order.
func (s *Schedule) IDs() []int64 {
	ids := make([]int64, len(s.Steps))
	for k, step := range s.Steps {
		ids[k] = step.ID
	}

	return ids
}
