package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the API process registry; pipeline and collaborator
// collectors register on it through Registerer so one /metrics serves all.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	labels := prometheus.Labels{"service": service}
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docledger",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests by route and status code.",
			ConstLabels: labels,
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "docledger",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds by route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docledger",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

func (m *HTTPServerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.inFlight, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := normalizePath(r.URL.Path)
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.code)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}))
}

// normalizePath folds document ids out of the route label.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/documents/")
	if !ok {
		return path
	}
	switch rest {
	case "unlock", "reprocess", "bundle":
		return path
	}
	if _, action, found := strings.Cut(rest, "/"); found {
		return "/v1/documents/{document_id}/" + action
	}
	return "/v1/documents/{document_id}"
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (w *codeRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *codeRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
