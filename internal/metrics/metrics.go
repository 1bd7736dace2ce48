package metrics

import (
	"fmt"
	"net/http"
	"time"

	"wavebench/internal/benchmark"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job batches are pushed under.
const JobName = "wavebench"

// Metrics represents the collection of all Prometheus metrics of a batch
type Metrics struct {
	registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	RecordsTotal       *prometheus.CounterVec
	MeanSeconds        *prometheus.GaugeVec
	MemoryKB           *prometheus.GaugeVec
	LastBatchTimestamp prometheus.Gauge
}

// NewMetrics creates all collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavebench_invocations_total",
			Help: "Library benchmark invocations by outcome",
		},
		[]string{"library", "outcome"},
	)

	m.InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavebench_invocation_duration_seconds",
			Help:    "Wall time of one library benchmark invocation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"library"},
	)

	m.RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavebench_records_total",
			Help: "Normalized benchmark records by status",
		},
		[]string{"scale", "status"},
	)

	m.MeanSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wavebench_mean_seconds",
			Help: "Mean time of the latest successful measurement",
		},
		[]string{"library", "language", "test", "file"},
	)

	m.MemoryKB = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wavebench_memory_kb",
			Help: "Peak resident memory growth of the latest successful measurement",
		},
		[]string{"library", "language", "test", "file"},
	)

	m.LastBatchTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavebench_last_batch_timestamp_seconds",
			Help: "Unix time the last batch finished",
		},
	)

	m.registry.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.RecordsTotal,
		m.MeanSeconds,
		m.MemoryKB,
		m.LastBatchTimestamp,
	)
	return m
}

// ObserveInvocation records one library invocation.
func (m *Metrics) ObserveInvocation(library, outcome string, elapsed time.Duration) {
	m.InvocationsTotal.WithLabelValues(library, outcome).Inc()
	m.InvocationDuration.WithLabelValues(library).Observe(elapsed.Seconds())
}

// ObserveRecords records a normalized batch.
func (m *Metrics) ObserveRecords(records []benchmark.Record, finished time.Time) {
	for _, r := range records {
		m.RecordsTotal.WithLabelValues(r.Scale, string(r.Status)).Inc()
		if !r.OK() {
			continue
		}
		m.MeanSeconds.WithLabelValues(r.Library, r.Language, r.Test, r.File).Set(r.MeanS)
		m.MemoryKB.WithLabelValues(r.Library, r.Language, r.Test, r.File).Set(float64(r.MemoryKB))
	}
	m.LastBatchTimestamp.Set(float64(finished.Unix()))
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Push sends every collector to a Pushgateway, grouped by scale.
func (m *Metrics) Push(url, scale string) error {
	if err := push.New(url, JobName).
		Gatherer(m.registry).
		Grouping("scale", scale).
		Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
