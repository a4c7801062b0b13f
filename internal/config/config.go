// Package config loads dagline settings from defaults, a YAML file, and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// Sentinel validation errors.
var (
	ErrInvalidStrategy     = errors.New("unknown search strategy")
	ErrInvalidMaxStates    = errors.New("search max states must be non-negative")
	ErrInvalidThreshold    = errors.New("search parallel threshold must be non-negative")
	ErrInvalidCacheEntries = errors.New("cache max entries must be positive")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidFormat       = errors.New("invalid format")
	ErrInvalidSampleRatio  = errors.New("telemetry sample ratio must be within [0, 1]")
)

// Output and log formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatText  = "text"
)

// appName names the default cache directory.
const appName = "dagline"

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{FormatText, FormatJSON}
	outputFormats = []string{FormatTable, FormatJSON, FormatYAML}
)

// Config holds all dagline settings.
type Config struct {
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// SearchConfig holds linearization settings.
type SearchConfig struct {
	Strategy          string `mapstructure:"strategy"`
	MaxStates         int    `mapstructure:"max_states"`
	ParallelThreshold int    `mapstructure:"parallel_threshold"`
}

// CacheConfig holds plan cache settings.
type CacheConfig struct {
	// Directory holds cached plans. Empty means the user cache directory.
	Directory  string `mapstructure:"directory"`
	MaxEntries int    `mapstructure:"max_entries"`
	Enabled    bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig holds schedule output settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC collector address. Empty disables export.
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	if !slices.Contains(linearize.Strategies(), c.Search.Strategy) {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Search.Strategy)
	}

	if c.Search.MaxStates < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxStates, c.Search.MaxStates)
	}

	if c.Search.ParallelThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, c.Search.ParallelThreshold)
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheEntries, c.Cache.MaxEntries)
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if !slices.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("%w for logging: %q", ErrInvalidFormat, c.Logging.Format)
	}

	if err := ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// ValidateOutputFormat checks a schedule output format name.
func ValidateOutputFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("%w for output: %q (want one of %s)", ErrInvalidFormat, format, strings.Join(outputFormats, ", "))
	}

	return nil
}

// SlogLevel returns the configured log level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheDir resolves the plan cache directory.
func (c *CacheConfig) CacheDir() (string, error) {
	if c.Directory != "" {
		return c.Directory, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}

	return filepath.Join(base, appName), nil
}

// LinearizeOptions turns the search settings into linearize options.
func (c *SearchConfig) LinearizeOptions() []linearize.Option {
	return []linearize.Option{
		linearize.WithMaxStates(c.MaxStates),
		linearize.WithParallelThreshold(c.ParallelThreshold),
	}
}
