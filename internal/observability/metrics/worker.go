package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks the sync-event consumer that runs the matcher for
// freshly synced portal records.
type WorkerMetrics struct {
	registry *prometheus.Registry

	scanTotal       *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	scanInFlight    prometheus.Gauge
	suggestionsMade *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	scanTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "worker",
			Name:      "record_scan_total",
			Help:      "Total scanned portal records by status.",
		},
		[]string{"service", "status"},
	)
	scanDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "worker",
			Name:      "record_scan_duration_seconds",
			Help:      "Record scan duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	scanInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recon",
			Subsystem: "worker",
			Name:      "record_scan_in_flight",
			Help:      "Number of in-flight record scans.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	suggestionsMade := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "worker",
			Name:      "suggestions_per_record",
			Help:      "Suggestions produced per scanned record.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)

	registry.MustRegister(scanTotal, scanDuration, scanInFlight, suggestionsMade)

	return &WorkerMetrics{
		registry:        registry,
		scanTotal:       scanTotal,
		scanDuration:    scanDuration,
		scanInFlight:    scanInFlight,
		suggestionsMade: suggestionsMade,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartScan() {
	m.scanInFlight.Inc()
}

func (m *WorkerMetrics) FinishScan(service string, duration time.Duration, suggestions int, err error) {
	m.scanInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.scanTotal.WithLabelValues(service, status).Inc()
	m.scanDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil {
		m.suggestionsMade.WithLabelValues(service).Observe(float64(suggestions))
	}
}
