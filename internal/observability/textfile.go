package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetricsFile gathers g and writes it to path in the Prometheus text
// exposition format, for pickup by a node-exporter textfile collector.
func WriteMetricsFile(path string, g prometheus.Gatherer) error {
	err := prometheus.WriteToTextfile(path, g)
	if err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}

	return nil
}
