package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName names the tracer and meter handed to dagline code.
const instrumentationName = "dagline"

// envTracesSampler, when set, hands sampler selection to the OTel SDK.
const envTracesSampler = "OTEL_TRACES_SAMPLER"

// Providers holds the initialized observability providers.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Shutdown writes the metrics file and flushes exporters. Call it once
	// before the process exits.
	Shutdown func(ctx context.Context) error
}

// Init builds the logger and the tracer and meter providers for one dagline
// process and installs them as the OTel globals.
//
// Traces leave the process only when OTLPEndpoint is set. Metrics go to the
// same endpoint and, when MetricsFile is set, to a Prometheus text file
// written at shutdown. Anything not configured is a no-op.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()
	tel := &telemetry{cfg: cfg, res: buildResource(cfg)}

	tp, err := tel.tracerProvider(ctx)
	if err != nil {
		return Providers{}, errors.Join(err, tel.shutdown(ctx))
	}

	mp, err := tel.meterProvider(ctx)
	if err != nil {
		return Providers{}, errors.Join(err, tel.shutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   newLogger(os.Stderr, cfg),
		Shutdown: tel.shutdown,
	}, nil
}

// telemetry collects the exporters started by Init so they can be stopped
// in reverse order.
type telemetry struct {
	cfg     Config
	res     *resource.Resource
	closers []func(context.Context) error
}

func (tel *telemetry) onShutdown(fn func(context.Context) error) {
	tel.closers = append(tel.closers, fn)
}

func (tel *telemetry) shutdown(ctx context.Context) error {
	timeout := time.Duration(tel.cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error

	for _, fn := range slices.Backward(tel.closers) {
		errs = append(errs, fn(ctx))
	}

	tel.closers = nil

	return errors.Join(errs...)
}

func (tel *telemetry) tracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	if tel.cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(tel.cfg.OTLPEndpoint)}
	if tel.cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(append(tracerOptions(tel.cfg, tel.res),
		sdktrace.WithSpanProcessor(NewAttributeFilter(sdktrace.NewBatchSpanProcessor(exporter))),
	)...)
	tel.onShutdown(sdk.Shutdown)

	if tel.cfg.TraceVerbose {
		return sdk, nil
	}

	return NewFilteringTracerProvider(sdk), nil
}

// tracerOptions applies the configured sample ratio to root spans. With
// OTEL_TRACES_SAMPLER set the option is left out and the SDK reads the
// environment itself.
func tracerOptions(cfg Config, res *resource.Resource) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if _, fromEnv := os.LookupEnv(envTracesSampler); fromEnv {
		return opts
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	return append(opts, sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))))
}

func (tel *telemetry) meterProvider(ctx context.Context) (metric.MeterProvider, error) {
	var opts []sdkmetric.Option

	if tel.cfg.OTLPEndpoint != "" {
		exportOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(tel.cfg.OTLPEndpoint)}
		if tel.cfg.OTLPInsecure {
			exportOpts = append(exportOpts, otlpmetricgrpc.WithInsecure())
		}

		exporter, err := otlpmetricgrpc.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	var registry *prometheus.Registry

	if tel.cfg.MetricsFile != "" {
		registry = prometheus.NewRegistry()

		reader, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("prometheus reader: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(reader))
	}

	if len(opts) == 0 {
		return noopmetric.NewMeterProvider(), nil
	}

	mp := sdkmetric.NewMeterProvider(append(opts, sdkmetric.WithResource(tel.res))...)

	// The registry is gathered before the provider stops collecting.
	tel.onShutdown(func(ctx context.Context) error {
		var writeErr error
		if registry != nil {
			writeErr = WriteMetricsFile(tel.cfg.MetricsFile, registry)
		}

		return errors.Join(writeErr, mp.Shutdown(ctx))
	})

	return mp, nil
}

func buildResource(cfg Config) *resource.Resource {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(name)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("app.mode", string(cfg.Mode)))
	}

	return resource.NewSchemaless(attrs...)
}

func newLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.ServiceVersion, cfg.Mode))
}
