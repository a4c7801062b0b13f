package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/dagline/internal/mcp"
	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/internal/planner"
	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
)

const diamondDoc = `name: diamond
nodes:
  - {id: 1, name: S, memory: 1}
  - {id: 2, name: A, memory: 5, inputs: [1]}
  - {id: 3, name: B, memory: 3, inputs: [1]}
  - {id: 4, name: T, memory: 1, inputs: [2, 3]}
`

func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	assert.Equal(t, []string{mcp.ToolNameCompare, mcp.ToolNameLinearize}, srv.ListToolNames())

	tools, err := connect(t, srv).ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 2)

	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
}

func TestServer_Linearize(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameLinearize, map[string]any{"graph": diamondDoc})
	require.False(t, result.IsError, textOf(t, result))

	var sched graphio.Schedule
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &sched))

	assert.Equal(t, "diamond", sched.Graph)
	assert.Equal(t, linearize.StrategyResourceAware, sched.Strategy)
	assert.Equal(t, []int64{1, 3, 2, 4}, sched.IDs())
	assert.InDelta(t, 8.0, sched.Peak, 0)
}

func TestServer_LinearizeWithStrategy(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameLinearize, map[string]any{
		"graph":    diamondDoc,
		"strategy": linearize.StrategyBreadthFirst,
	})
	require.False(t, result.IsError)

	var sched graphio.Schedule
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &sched))
	assert.Equal(t, linearize.StrategyBreadthFirst, sched.Strategy)
}

func TestServer_LinearizeErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	cases := []struct {
		args map[string]any
		want string
	}{
		{args: map[string]any{"graph": ""}, want: mcp.ErrEmptyGraph.Error()},
		{args: map[string]any{"graph": diamondDoc, "max_states": -1}, want: "max_states"},
		{args: map[string]any{"graph": diamondDoc, "strategy": "random"}, want: "unknown linearization strategy"},
		{args: map[string]any{"graph": "nodes:\n  - {id: 1, inputs: [2]}\n  - {id: 2, inputs: [1]}\n"}, want: "cycle"},
	}

	for _, tc := range cases {
		result := callTool(t, session, mcp.ToolNameLinearize, tc.args)
		assert.True(t, result.IsError)
		assert.Contains(t, textOf(t, result), tc.want)
	}
}

func TestServer_Compare(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameCompare, map[string]any{"graph": diamondDoc, "max_states": 1000})
	require.False(t, result.IsError, textOf(t, result))

	var out mcp.CompareOutput
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &out))

	require.Len(t, out.Rows, len(linearize.Strategies()))
	assert.Equal(t, linearize.StrategyResourceAware, out.Rows[0].Strategy)
	assert.Zero(t, out.Rows[0].Moved)
	assert.Positive(t, out.Rows[1].Moved)
	assert.Equal(t, "8 B", out.Rows[0].PeakHuman)
}

func TestServer_UsesPlannerCache(t *testing.T) {
	t.Parallel()

	cache := plancache.New(plancache.Options{})
	srv := mcp.NewServer(mcp.ServerDeps{Planner: planner.New(planner.Options{Cache: cache})})
	session := connect(t, srv)

	for range 2 {
		result := callTool(t, session, mcp.ToolNameLinearize, map[string]any{"graph": diamondDoc})
		require.False(t, result.IsError)
	}

	assert.Equal(t, int64(1), cache.Stats().MemoryHits)
}

func TestServer_TracingAndMetrics(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Tracer: tp.Tracer("test"), Metrics: red}))

	result := callTool(t, session, mcp.ToolNameLinearize, map[string]any{"graph": diamondDoc})
	require.False(t, result.IsError)
	require.Len(t, result.Content, 2)

	trailer, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, trailer.Text, "trace_id=")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcp."+mcp.ToolNameLinearize, spans[0].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "dagline.requests.total" {
				found = true
			}
		}
	}

	assert.True(t, found)
}
