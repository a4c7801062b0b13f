// Package mcp implements a Model Context Protocol server exposing dagline
// linearization as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/internal/planner"
	"github.com/Sumatoshi-tech/dagline/pkg/version"
)

const (
	serverName = "dagline"
	toolCount  = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use defaults.
type ServerDeps struct {
	Logger *slog.Logger

	// Planner computes plans. Nil uses an uncached planner with default search settings.
	Planner *planner.Planner

	// Metrics records per-tool RED metrics. Nil disables them.
	Metrics *observability.REDMetrics

	// Tracer creates per-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the dagline tools.
type Server struct {
	inner   *mcpsdk.Server
	planner *planner.Planner
	logger  *slog.Logger
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	mu      sync.RWMutex
	tools   []string
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plan := deps.Planner
	if plan == nil {
		plan = planner.New(planner.Options{Logger: logger})
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{
		inner:   inner,
		planner: plan,
		logger:  logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		tools:   make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until the context is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until the context is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool[LinearizeInput, ToolOutput](s.inner, &mcpsdk.Tool{
		Name:        ToolNameLinearize,
		Description: linearizeToolDescription,
	}, withMetrics(s.metrics, ToolNameLinearize, withTracing(s.tracer, ToolNameLinearize, s.handleLinearize)))

	s.trackTool(ToolNameLinearize)

	mcpsdk.AddTool[CompareInput, ToolOutput](s.inner, &mcpsdk.Tool{
		Name:        ToolNameCompare,
		Description: compareToolDescription,
	}, withMetrics(s.metrics, ToolNameCompare, withTracing(s.tracer, ToolNameCompare, s.handleCompare)))

	s.trackTool(ToolNameCompare)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey labels the trace id appended to sampled tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps a tool handler in a server span and appends the trace id
// to the response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String()),
			})
		}

		return result, output, err
	}
}

// withMetrics wraps a tool handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	op := mcpSpanPrefix + toolName

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, op)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	linearizeToolDescription = "Linearize an operator DAG so that peak live intermediate memory is minimized. " +
		"Accepts a graph document (YAML or JSON) and returns the schedule with the live memory at every step."

	compareToolDescription = "Run every linearization strategy on an operator DAG and compare their peak memory. " +
		"Reports, per strategy, the order, the peak, and how many positions differ from the resource-aware order."
)
