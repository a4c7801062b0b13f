package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/dagline/internal/planner"
	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/opgraph"
	"github.com/Sumatoshi-tech/dagline/pkg/report"
)

// Tool names.
const (
	ToolNameLinearize = "dagline_linearize"
	ToolNameCompare   = "dagline_compare"
)

// MaxGraphInputBytes bounds the inline graph document (4 MiB).
const MaxGraphInputBytes = 4 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyGraph        = errors.New("graph parameter is required and must not be empty")
	ErrGraphTooLarge     = errors.New("graph input exceeds maximum size")
	ErrNegativeMaxStates = errors.New("max_states must not be negative")
)

// LinearizeInput is the input schema for the dagline_linearize tool.
type LinearizeInput struct {
	Graph     string `json:"graph"                jsonschema:"graph document in YAML or JSON"`
	Strategy  string `json:"strategy,omitempty"   jsonschema:"resource-aware (default), breadth-first or depth-first"`
	MaxStates int    `json:"max_states,omitempty" jsonschema:"search state budget; 0 keeps the server default"`
}

// CompareInput is the input schema for the dagline_compare tool.
type CompareInput struct {
	Graph     string `json:"graph"                jsonschema:"graph document in YAML or JSON"`
	MaxStates int    `json:"max_states,omitempty" jsonschema:"search state budget; 0 keeps the server default"`
}

// ToolOutput is the structured output of every tool.
type ToolOutput struct {
	Data any `json:"data"`
}

// CompareRow is one strategy in a dagline_compare result.
type CompareRow struct {
	Strategy  string  `json:"strategy"`
	PeakHuman string  `json:"peak_human"`
	Order     []int64 `json:"order"`
	Peak      float64 `json:"peak"`
	// Moved counts positions that differ from the first row's order.
	Moved  int  `json:"moved"`
	Cached bool `json:"cached"`
}

// CompareOutput is the dagline_compare result.
type CompareOutput struct {
	Graph string       `json:"graph"`
	Rows  []CompareRow `json:"rows"`
}

func (s *Server) handleLinearize(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input LinearizeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	doc, g, err := decodeGraph(input.Graph)
	if err != nil {
		return errorResult(err)
	}

	p, err := s.plannerFor(input.MaxStates)
	if err != nil {
		return errorResult(err)
	}

	plan, err := p.Plan(ctx, g, input.Strategy)
	if err != nil {
		return errorResult(err)
	}

	s.logger.InfoContext(ctx, "mcp linearize",
		"graph", doc.Name, "strategy", plan.Strategy, "peak", plan.Peak, "cached", plan.Cached())

	return jsonResult(graphio.NewSchedule(doc.Name, plan.Result))
}

func (s *Server) handleCompare(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CompareInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	doc, g, err := decodeGraph(input.Graph)
	if err != nil {
		return errorResult(err)
	}

	p, err := s.plannerFor(input.MaxStates)
	if err != nil {
		return errorResult(err)
	}

	plans, err := p.Compare(ctx, g)
	if err != nil {
		return errorResult(err)
	}

	out := CompareOutput{Graph: doc.Name, Rows: make([]CompareRow, len(plans))}

	for k, plan := range plans {
		out.Rows[k] = CompareRow{
			Strategy:  plan.Strategy,
			Order:     plan.IDs(),
			Peak:      plan.Peak,
			PeakHuman: graphio.FormatBytes(plan.Peak),
			Moved:     report.DiffOrders(plans[0].Result, plan.Result).Changed(),
			Cached:    plan.Cached(),
		}
	}

	return jsonResult(out)
}

func (s *Server) plannerFor(maxStates int) (*planner.Planner, error) {
	switch {
	case maxStates < 0:
		return nil, fmt.Errorf("%w: %d", ErrNegativeMaxStates, maxStates)
	case maxStates == 0:
		return s.planner, nil
	default:
		return s.planner.WithMaxStates(maxStates), nil
	}
}

func decodeGraph(text string) (*graphio.Document, *opgraph.Graph, error) {
	if text == "" {
		return nil, nil, ErrEmptyGraph
	}

	if len(text) > MaxGraphInputBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrGraphTooLarge, len(text), MaxGraphInputBytes)
	}

	doc, err := graphio.Decode([]byte(text))
	if err != nil {
		return nil, nil, err
	}

	g, err := doc.Build()
	if err != nil {
		return nil, nil, err
	}

	return doc, g, nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
