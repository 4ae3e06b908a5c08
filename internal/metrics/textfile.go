package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every metric gathered from reg to path in the
// Prometheus text exposition format, for node_exporter's textfile collector
// or CI artifact upload.
func WriteTextfile(reg *prom.Registry, path string) error {
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
