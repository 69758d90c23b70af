package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics bundles HTTP server metrics with retrieval telemetry on a
// single private registry. It satisfies the retrieval observer contract.
type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal          *prometheus.CounterVec
	searchDuration       *prometheus.HistogramVec
	searchAttempts       *prometheus.HistogramVec
	backendDegradedTotal *prometheus.CounterVec
	gateFailedTotal      *prometheus.CounterVec
	cacheLookupsTotal    *prometheus.CounterVec
	graphShortCircuits   prometheus.Counter
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "juris",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "juris",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Completed retrieval searches by outcome.",
		},
		[]string{"service", "outcome"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	searchAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "attempts",
			Help:      "Distribution of retrieval attempts per search.",
			Buckets:   []float64{1, 2, 3, 4},
		},
		[]string{"service"},
	)
	backendDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "backend_degraded_total",
			Help:      "Backend calls that failed and degraded to empty results.",
		},
		[]string{"service", "backend"},
	)
	gateFailedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "gate_failed_total",
			Help:      "Quality gate failures by reason.",
		},
		[]string{"service", "reason"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		},
		[]string{"service", "result"},
	)
	graphShortCircuits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "juris",
			Subsystem: "retrieval",
			Name:      "graph_short_circuits_total",
			Help:      "Searches answered from the graph without hybrid fan-out.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		searchAttempts,
		backendDegradedTotal,
		gateFailedTotal,
		cacheLookupsTotal,
		graphShortCircuits,
	)

	return &ServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		searchTotal:          searchTotal,
		searchDuration:       searchDuration,
		searchAttempts:       searchAttempts,
		backendDegradedTotal: backendDegradedTotal,
		gateFailedTotal:      gateFailedTotal,
		cacheLookupsTotal:    cacheLookupsTotal,
		graphShortCircuits:   graphShortCircuits,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/retrieval/"):
		return path
	case strings.HasPrefix(path, "/v1/"):
		return "/v1/other"
	default:
		return path
	}
}

const serviceLabel = "api"

func (m *ServerMetrics) SearchCompleted(outcome string, attempts int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.searchTotal.WithLabelValues(serviceLabel, outcome).Inc()
	m.searchDuration.WithLabelValues(serviceLabel).Observe(duration.Seconds())
	if attempts > 0 {
		m.searchAttempts.WithLabelValues(serviceLabel).Observe(float64(attempts))
	}
}

func (m *ServerMetrics) BackendDegraded(backend string) {
	if backend == "" {
		backend = "unknown"
	}
	m.backendDegradedTotal.WithLabelValues(serviceLabel, backend).Inc()
}

func (m *ServerMetrics) GateFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.gateFailedTotal.WithLabelValues(serviceLabel, reason).Inc()
}

func (m *ServerMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(serviceLabel, result).Inc()
}

func (m *ServerMetrics) GraphShortCircuit() {
	m.graphShortCircuits.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
