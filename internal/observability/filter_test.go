package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
)

func TestFilteringTracerProvider_DropsPhaseSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	tracer := observability.NewFilteringTracerProvider(tp).Tracer("dagline")

	ctx, root := tracer.Start(context.Background(), "dagline.linearize")
	_, extract := tracer.Start(ctx, "dagline.extract")
	extract.End()
	_, search := tracer.Start(ctx, "dagline.search")
	search.End()
	root.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "dagline.linearize", spans[0].Name)
}

func TestAttributeFilter_KeepsAllowedKeys(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter))),
	)

	_, span := tp.Tracer("dagline").Start(context.Background(), "dagline.linearize")
	span.SetAttributes(
		attribute.Int("dagline.nodes", 4),
		attribute.String("dagline.document", "nodes: []"),
		attribute.String("mcp.tool", "dagline_linearize"),
		attribute.String("user.email", "someone@example.com"),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	keys := make([]string, 0, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		keys = append(keys, string(kv.Key))
	}

	assert.ElementsMatch(t, []string{"dagline.nodes", "mcp.tool"}, keys)
	require.NoError(t, tp.Shutdown(context.Background()))
}
