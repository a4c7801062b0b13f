package graphio

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ErrInvalidMemorySize is returned for a memory value that is neither a
// non-negative number nor a size string such as "8MiB".
var ErrInvalidMemorySize = errors.New("invalid memory size")

// MemorySize is a byte count that decodes from a number or a humanized string.
type MemorySize float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *MemorySize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidMemorySize, value.Line)
	}

	if value.Tag == "!!str" {
		size, err := ParseSize(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}

		*m = MemorySize(size)

		return nil
	}

	var bytes float64

	if err := value.Decode(&bytes); err != nil {
		return fmt.Errorf("%w: line %d: %w", ErrInvalidMemorySize, value.Line, err)
	}

	if bytes < 0 || math.IsNaN(bytes) || math.IsInf(bytes, 0) {
		return fmt.Errorf("%w: line %d: %v", ErrInvalidMemorySize, value.Line, bytes)
	}

	*m = MemorySize(bytes)

	return nil
}

func (m MemorySize) String() string {
	return FormatBytes(float64(m))
}

// ParseSize parses a humanized size such as "512KiB" or "1.5 GB".
func ParseSize(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMemorySize)
	}

	parsed, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMemorySize, s)
	}

	return float64(parsed), nil
}

// FormatBytes renders a byte count with IEC units.
func FormatBytes(b float64) string {
	if b <= 0 || math.IsNaN(b) {
		return humanize.IBytes(0)
	}

	if b >= math.MaxUint64 {
		return humanize.IBytes(math.MaxUint64)
	}

	return humanize.IBytes(uint64(math.Round(b)))
}
