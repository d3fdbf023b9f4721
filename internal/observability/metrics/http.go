package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics tracks the API surface plus matching outcomes observed
// through it.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	suggestionsTotal   *prometheus.CounterVec
	noSuggestionTotal  *prometheus.CounterVec
	suggestionCount    *prometheus.HistogramVec
	topScore           *prometheus.HistogramVec
	bindsTotal         *prometheus.CounterVec
	resolutionsTotal   *prometheus.CounterVec
	excludedPerResolve *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recon",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	suggestionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "matching",
			Name:      "suggestion_requests_total",
			Help:      "Total suggestion queries answered.",
		},
		[]string{"service"},
	)
	noSuggestionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "matching",
			Name:      "no_suggestion_total",
			Help:      "Total suggestion queries that returned zero candidates.",
		},
		[]string{"service"},
	)
	suggestionCount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "matching",
			Name:      "suggestions_returned",
			Help:      "Distribution of returned suggestions per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	topScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "matching",
			Name:      "top_score",
			Help:      "Distribution of the best candidate score per query.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)
	bindsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "matching",
			Name:      "binds_total",
			Help:      "Total match bind attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recon",
			Subsystem: "duplicates",
			Name:      "resolutions_total",
			Help:      "Total duplicate-group resolutions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	excludedPerResolve := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recon",
			Subsystem: "duplicates",
			Name:      "excluded_per_resolution",
			Help:      "Invoices excluded per committed resolution.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		suggestionsTotal, noSuggestionTotal, suggestionCount, topScore,
		bindsTotal, resolutionsTotal, excludedPerResolve,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		suggestionsTotal:   suggestionsTotal,
		noSuggestionTotal:  noSuggestionTotal,
		suggestionCount:    suggestionCount,
		topScore:           topScore,
		bindsTotal:         bindsTotal,
		resolutionsTotal:   resolutionsTotal,
		excludedPerResolve: excludedPerResolve,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request with count, duration and in-flight
// tracking.
func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		recorder := &metricsStatusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses path parameters so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case path == "/v1/duplicates/resolve" || path == "/v1/duplicates/confirm":
		return path
	case strings.HasPrefix(path, "/v1/duplicates/"):
		return "/v1/duplicates/{number}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) ObserveSuggestions(service string, count, topScore int) {
	m.suggestionsTotal.WithLabelValues(service).Inc()
	m.suggestionCount.WithLabelValues(service).Observe(float64(count))
	if count == 0 {
		m.noSuggestionTotal.WithLabelValues(service).Inc()
		return
	}
	m.topScore.WithLabelValues(service).Observe(float64(topScore))
}

func (m *HTTPServerMetrics) ObserveBind(service string, err error) {
	m.bindsTotal.WithLabelValues(service, outcome(err)).Inc()
}

func (m *HTTPServerMetrics) ObserveResolution(service string, excluded int, err error) {
	m.resolutionsTotal.WithLabelValues(service, outcome(err)).Inc()
	if err == nil {
		m.excludedPerResolve.WithLabelValues(service).Observe(float64(excluded))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsStatusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
