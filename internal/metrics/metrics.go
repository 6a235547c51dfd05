// Package metrics exposes ingestion run outcomes as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
)

// Metrics implements airquality.Recorder on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastSuccessSec prometheus.Gauge
}

var _ airquality.Recorder = (*Metrics)(nil)

// New registers the ingestion collectors plus Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airquality_ingestion_runs_total",
				Help: "Ingestion runs by terminal status",
			},
			[]string{"status"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airquality_ingestion_rows_total",
				Help: "Records seen by ingestion runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "airquality_ingestion_run_duration_seconds",
				Help:    "Wall time of ingestion runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		lastSuccessSec: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "airquality_ingestion_last_success_timestamp_seconds",
				Help: "Unix time of the last run that finished with status success",
			},
		),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.rowsTotal,
		m.runDuration,
		m.lastSuccessSec,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry to expose over HTTP.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(run airquality.IngestionRun) {
	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	m.rowsTotal.WithLabelValues("inserted").Add(float64(run.Inserted))
	m.rowsTotal.WithLabelValues("skipped").Add(float64(run.Skipped))
	m.rowsTotal.WithLabelValues("rejected").Add(float64(run.Rejected))
	m.rowsTotal.WithLabelValues("failed").Add(float64(run.Failed))
	m.runDuration.Observe(run.Duration().Seconds())
	if run.Status == airquality.StatusSuccess && !run.FinishedAt.IsZero() {
		m.lastSuccessSec.Set(float64(run.FinishedAt.Unix()))
	}
}
