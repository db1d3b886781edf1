// Package metrics exposes harvest cycle metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/harvester/internal/model"
)

// Cycle outcomes
const (
	OutcomeSaved   = "saved"
	OutcomeAborted = "aborted"
)

// Recorder owns the harvester metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	merged      prometheus.Gauge
	lastSuccess prometheus.Gauge
	duration    prometheus.Histogram
}

// NewRecorder creates a recorder registered on its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvester",
		Name:      "cycles_total",
		Help:      "Harvest cycles by outcome",
	}, []string{"outcome"})
	r.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "harvester",
		Name:      "source_fetches_total",
		Help:      "Producer fetches by result",
	}, []string{"result"})
	r.merged = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harvester",
		Name:      "records_merged",
		Help:      "Records in the last saved collection",
	})
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "harvester",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last saved cycle",
	})
	r.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "harvester",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent in a harvest cycle",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	r.registry.MustRegister(r.cycles, r.fetches, r.merged, r.lastSuccess, r.duration)
	return r
}

// ObserveFetch counts one producer fetch.
func (r *Recorder) ObserveFetch(status model.FetchStatus) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(status.String()).Inc()
}

// ObserveCycle records a finished cycle.
func (r *Recorder) ObserveCycle(report *model.CycleReport) {
	if r == nil || report == nil {
		return
	}
	r.duration.Observe(report.Duration.Seconds())
	if !report.Saved {
		r.cycles.WithLabelValues(OutcomeAborted).Inc()
		return
	}
	r.cycles.WithLabelValues(OutcomeSaved).Inc()
	r.merged.Set(float64(report.Merged))
	r.lastSuccess.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
