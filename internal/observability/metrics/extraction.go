package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExtractionMetrics contains the Prometheus metrics of a dataset extraction run.
type ExtractionMetrics struct {
	Images           *prometheus.CounterVec
	Annotations      *prometheus.CounterVec
	RowsFiltered     *prometheus.CounterVec
	ImageOpDuration  *prometheus.HistogramVec
	FetchDuration    prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
	registry         *prometheus.Registry
}

// NewExtractionMetrics creates the extraction metrics and registers them with
// registry.
func NewExtractionMetrics(registry *prometheus.Registry) (*ExtractionMetrics, error) {
	m := &ExtractionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register extraction metrics: %w", err)
	}
	return m, nil
}

func (m *ExtractionMetrics) initMetrics() {
	m.Images = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rwm_dataset_images_total",
		Help: "Images handled by the extraction, by split and outcome.",
	}, []string{"split", "outcome"})

	m.Annotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rwm_dataset_annotations_total",
		Help: "Annotation rows of processed images, by split and encoding result.",
	}, []string{"split", "result"})

	m.RowsFiltered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rwm_dataset_rows_filtered_total",
		Help: "Annotation rows removed before grouping, by reason.",
	}, []string{"reason"})

	m.ImageOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rwm_dataset_image_processing_duration_seconds",
		Help:    "Duration of per-image operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"operation"})

	m.FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rwm_dataset_fetch_duration_seconds",
		Help:    "Duration of the annotation query in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rwm_dataset_last_run_timestamp_seconds",
		Help: "Unix time at which the last extraction run finished.",
	})
}

// RecordImage counts one image with its outcome.
func (m *ExtractionMetrics) RecordImage(split, outcome string) {
	m.Images.WithLabelValues(split, outcome).Inc()
}

// RecordAnnotations counts the encoded and dropped rows of one image.
func (m *ExtractionMetrics) RecordAnnotations(split string, encoded, dropped int) {
	m.Annotations.WithLabelValues(split, ResultEncoded).Add(float64(encoded))
	m.Annotations.WithLabelValues(split, ResultDropped).Add(float64(dropped))
}

// RecordFiltered counts rows removed by a filter.
func (m *ExtractionMetrics) RecordFiltered(reason string, rows int) {
	m.RowsFiltered.WithLabelValues(reason).Add(float64(rows))
}

// ObserveImageOperation records the duration of a per-image operation.
func (m *ExtractionMetrics) ObserveImageOperation(operation string, d time.Duration) {
	m.ImageOpDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveFetch records the duration of the annotation query.
func (m *ExtractionMetrics) ObserveFetch(d time.Duration) {
	m.FetchDuration.Observe(d.Seconds())
}

// MarkRunFinished sets the last run timestamp.
func (m *ExtractionMetrics) MarkRunFinished(t time.Time) {
	m.LastRunTimestamp.Set(float64(t.Unix()))
}

// Collect implements the prometheus.Collector interface.
func (m *ExtractionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Images.Collect(ch)
	m.Annotations.Collect(ch)
	m.RowsFiltered.Collect(ch)
	m.ImageOpDuration.Collect(ch)
	ch <- m.FetchDuration
	ch <- m.LastRunTimestamp
}

// Describe implements the prometheus.Collector interface.
func (m *ExtractionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Images.Describe(ch)
	m.Annotations.Describe(ch)
	m.RowsFiltered.Describe(ch)
	m.ImageOpDuration.Describe(ch)
	ch <- m.FetchDuration.Desc()
	ch <- m.LastRunTimestamp.Desc()
}
