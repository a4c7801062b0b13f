// Package observability wires OpenTelemetry tracing and metrics together with
// the structured logger used by every dagline command.
package observability

import "log/slog"

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is a one-shot CLI command.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "dagline"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	ServiceVersion string

	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export. Headers come from OTEL_EXPORTER_OTLP_HEADERS.
	OTLPEndpoint string

	// MetricsFile receives a Prometheus text exposition of all metrics at shutdown.
	MetricsFile string

	OTLPInsecure bool

	// SampleRatio is the share of root spans sampled. Values outside (0, 1] sample all.
	SampleRatio float64

	LogLevel slog.Level

	LogJSON bool

	// TraceVerbose keeps the per-phase extraction and search spans.
	TraceVerbose bool

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
