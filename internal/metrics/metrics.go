// Package metrics exposes the Prometheus collectors of an analysis run.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeNoLog   = "no_log"
	OutcomeAborted = "aborted"
	OutcomeFailed  = "failed"
)

// Metrics holds collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	linesTotal     prometheus.Counter
	parseErrors    prometheus.Counter
	samples        prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	endpoints      prometheus.Gauge
	lastSuccess    prometheus.Gauge
	writerFailures *prometheus.CounterVec
	apiRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logspectra_lines_total",
			Help: "Total log lines read.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logspectra_parse_errors_total",
			Help: "Log lines that could not be parsed.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logspectra_samples_processed_total",
			Help: "Log lines successfully aggregated.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logspectra_runs_total",
			Help: "Analysis runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logspectra_run_duration_seconds",
			Help:    "Wall time of a full analysis run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		endpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logspectra_endpoints",
			Help: "Distinct endpoints seen in the last analyzed log.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logspectra_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		writerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logspectra_writer_failures_total",
			Help: "Report writer failures by writer type.",
		}, []string{"writer"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logspectra_api_requests_total",
			Help: "Query API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(m.linesTotal, m.parseErrors, m.samples, m.runs,
		m.runDuration, m.endpoints, m.lastSuccess, m.writerFailures, m.apiRequests)
	return m
}

// Registry returns the private registry, e.g. for the ls-api /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCounts records the stream counters of one analysis pass.
func (m *Metrics) ObserveCounts(lines, processed, errors, endpoints int) {
	m.linesTotal.Add(float64(lines))
	m.samples.Add(float64(processed))
	m.parseErrors.Add(float64(errors))
	m.endpoints.Set(float64(endpoints))
}

// ObserveRun records the outcome and duration of a run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		m.lastSuccess.SetToCurrentTime()
	}
}

// WriterFailed counts a failed writer.
func (m *Metrics) WriterFailed(writer string) {
	m.writerFailures.WithLabelValues(writer).Inc()
}

// ObserveRequest counts a served API request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
