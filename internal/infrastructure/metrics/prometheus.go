package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports graph metrics to Prometheus format.
type PrometheusExporter struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	edges      *prometheus.CounterVec
	links      *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter registered on reg.
// Pass prometheus.DefaultRegisterer to expose metrics on the default /metrics handler.
func NewPrometheusExporter(reg prometheus.Registerer, namespace string) *PrometheusExporter {
	factory := promauto.With(reg)
	return &PrometheusExporter{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_operations_total",
				Help:      "Total number of association graph operations",
			},
			[]string{"operation"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_operation_duration_seconds",
				Help:      "Duration of association graph operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_operation_errors_total",
				Help:      "Total number of failed association graph operations",
			},
			[]string{"operation"},
		),
		edges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_edges_total",
				Help:      "Total number of edges created or deleted",
			},
			[]string{"change"},
		),
		links: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_links_total",
				Help:      "Total number of links created or deleted",
			},
			[]string{"change"},
		),
	}
}

// RecordOperation records an operation in Prometheus.
func (e *PrometheusExporter) RecordOperation(op string) {
	e.operations.WithLabelValues(op).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(op string, durationSeconds float64) {
	e.duration.WithLabelValues(op).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(op string) {
	e.errors.WithLabelValues(op).Inc()
}

// RecordEdges records created and deleted edges.
func (e *PrometheusExporter) RecordEdges(created, deleted int) {
	e.edges.WithLabelValues("created").Add(float64(created))
	e.edges.WithLabelValues("deleted").Add(float64(deleted))
}

// RecordLinks records created and deleted links.
func (e *PrometheusExporter) RecordLinks(created, deleted int) {
	e.links.WithLabelValues("created").Add(float64(created))
	e.links.WithLabelValues("deleted").Add(float64(deleted))
}
