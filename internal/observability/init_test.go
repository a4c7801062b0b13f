package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
)

func TestInit_NoExportUsesNoopProviders(t *testing.T) {
	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "dagline.linearize")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_MetricsFileWrittenAtShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dagline.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsFile = path

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "run", observability.StatusOK, 20*time.Millisecond)

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dagline_requests")
	assert.Contains(t, string(data), `op="run"`)
}

func TestBuildResource(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "0.3.0"
	cfg.Mode = observability.ModeMCP

	res := observability.BuildResource(cfg)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "dagline", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "0.3.0", attrs[string(semconv.ServiceVersionKey)])
	assert.Equal(t, "mcp", attrs["app.mode"])
}

func TestSampler_DefaultSamplesEverything(t *testing.T) {
	t.Parallel()

	assert.True(t, observability.RootSpanSampled(observability.DefaultConfig()))
}

func TestSampler_EnvOverride(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "always_off")

	assert.False(t, observability.RootSpanSampled(observability.DefaultConfig()))
}

func TestSampler_RatioFromEnvArg(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0")

	assert.False(t, observability.RootSpanSampled(observability.DefaultConfig()))
}

func TestSampler_ConfiguredRatio(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	cfg.SampleRatio = 1
	assert.True(t, observability.RootSpanSampled(cfg))

	// Out-of-range ratios fall back to sampling everything.
	cfg.SampleRatio = 7
	assert.True(t, observability.RootSpanSampled(cfg))
}

func TestInit_ShutdownIsRepeatable(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "dagline.prom")

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}
