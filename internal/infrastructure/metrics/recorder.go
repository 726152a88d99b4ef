package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/asakaida/polylink/internal/infrastructure/config"
)

// Recorder records engine operations on a Collector and, when set, a PrometheusExporter.
// It satisfies graph.Recorder.
type Recorder struct {
	collector *Collector
	exporter  *PrometheusExporter
}

// NewRecorder creates a recorder. exporter may be nil.
func NewRecorder(collector *Collector, exporter *PrometheusExporter) *Recorder {
	if collector == nil {
		collector = NewCollector()
	}
	return &Recorder{collector: collector, exporter: exporter}
}

// NewRecorderFromConfig creates a recorder as configured by METRICS_ENABLED and
// METRICS_NAMESPACE. The Prometheus exporter is registered on reg only when enabled.
func NewRecorderFromConfig(cfg *config.MetricsConfig, reg prometheus.Registerer) *Recorder {
	if cfg == nil || !cfg.Enabled {
		return NewRecorder(NewCollector(), nil)
	}
	return NewRecorder(NewCollector(), NewPrometheusExporter(reg, cfg.Namespace))
}

// Collector returns the underlying collector.
func (r *Recorder) Collector() *Collector {
	return r.collector
}

// RecordOperation records one finished operation with its duration and outcome.
func (r *Recorder) RecordOperation(op string, d time.Duration, err error) {
	seconds := d.Seconds()

	r.collector.RecordOperation(op)
	r.collector.RecordDuration(op, seconds)
	if r.exporter != nil {
		r.exporter.RecordOperation(op)
		r.exporter.RecordDuration(op, seconds)
	}

	if err != nil {
		r.collector.RecordError(op)
		if r.exporter != nil {
			r.exporter.RecordError(op)
		}
	}
}

// RecordEdges records edge churn.
func (r *Recorder) RecordEdges(created, deleted int) {
	if created == 0 && deleted == 0 {
		return
	}
	r.collector.RecordEdges(created, deleted)
	if r.exporter != nil {
		r.exporter.RecordEdges(created, deleted)
	}
}

// RecordLinks records link churn.
func (r *Recorder) RecordLinks(created, deleted int) {
	if created == 0 && deleted == 0 {
		return
	}
	r.collector.RecordLinks(created, deleted)
	if r.exporter != nil {
		r.exporter.RecordLinks(created, deleted)
	}
}
