package linearize

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sumatoshi-tech/dagline/pkg/linearize"

// Search defaults.
const (
	// DefaultMaxStates bounds the states expanded by one Linearize call.
	DefaultMaxStates = 2_000_000

	// DefaultParallelThreshold is the number of constraints on a single slot
	// above which the feasibility check fans out over goroutines.
	DefaultParallelThreshold = 64

	// cancelCheckInterval is how many expansions pass between context polls.
	cancelCheckInterval = 1024
)

type settings struct {
	logger            *slog.Logger
	tracer            trace.Tracer
	maxStates         int
	parallelThreshold int
}

// Option configures Linearize.
type Option func(*settings)

// WithLogger sets the logger used for debug records. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer for extraction and search spans.
// Defaults to the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMaxStates bounds the number of expanded search states. Zero means unbounded.
func WithMaxStates(n int) Option {
	return func(s *settings) {
		s.maxStates = max(n, 0)
	}
}

// WithParallelThreshold sets the constraint count above which feasibility checks
// run in parallel. Zero disables parallel checks.
func WithParallelThreshold(n int) Option {
	return func(s *settings) {
		s.parallelThreshold = max(n, 0)
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		maxStates:         DefaultMaxStates,
		parallelThreshold: DefaultParallelThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	return s
}
