// Package observability owns the metrics registry of an extraction run and
// exports it for batch collection.
package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/roboweedmaps/rwm-dataset/internal/errors"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
	"github.com/roboweedmaps/rwm-dataset/internal/observability/metrics"
)

// DefaultJobName is the Pushgateway job label when none is configured.
const DefaultJobName = "rwm_dataset_extraction"

// Metrics holds the metric collectors of the application.
type Metrics struct {
	registry   *prometheus.Registry
	Extraction *metrics.ExtractionMetrics
}

// NewMetrics creates a registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	extraction, err := metrics.NewExtractionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction metrics: %w", err)
	}

	return &Metrics{registry: registry, Extraction: extraction}, nil
}

// Registry returns the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the registry in text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exportError(err, "write_textfile")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return exportError(err, "write_textfile")
	}
	GetLogger().Info("wrote metrics textfile", logger.String("path", path))
	return nil
}

// Push sends the registry to a Pushgateway, replacing the job's metrics.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = DefaultJobName
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return exportError(err, "push")
	}
	GetLogger().Info("pushed metrics", logger.String("job", job))
	return nil
}

// Export writes the textfile and pushes to the gateway, whichever is set.
// Both are attempted; failures are joined.
func (m *Metrics) Export(ctx context.Context, textfilePath, pushURL, job string) error {
	var errs []error
	if textfilePath != "" {
		errs = append(errs, m.WriteTextfile(textfilePath))
	}
	if pushURL != "" {
		errs = append(errs, m.Push(ctx, pushURL, job))
	}
	return errors.Join(errs...)
}

func exportError(err error, op string) error {
	return errors.New(fmt.Errorf("metrics %s: %w", op, err)).
		Component("metrics").
		Category(errors.CategoryMetrics).
		Context("operation", op).
		Build()
}
