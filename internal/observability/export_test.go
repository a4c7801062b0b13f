package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// BuildResource exposes buildResource for testing.
func BuildResource(cfg Config) *resource.Resource {
	return buildResource(cfg)
}

// RootSpanSampled starts one root span under the sampling configured by cfg
// and reports whether it was exported.
func RootSpanSampled(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(append(tracerOptions(cfg, buildResource(cfg)),
		sdktrace.WithSyncer(exporter),
	)...)

	_, span := tp.Tracer("test").Start(context.Background(), "dagline.linearize")
	span.End()

	spans := exporter.GetSpans()

	if err := tp.Shutdown(context.Background()); err != nil {
		return false
	}

	return len(spans) > 0
}
