package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics measures status events consumed by the audit worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal *prometheus.CounterVec
	eventLag    *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docledger",
			Subsystem: "worker",
			Name:      "status_events_total",
			Help:      "Total consumed document status events by target status and outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"to", "outcome"},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docledger",
			Subsystem: "worker",
			Name:      "status_event_lag_seconds",
			Help:      "Delay between a status transition and its consumption.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"to"},
	)

	registry.MustRegister(eventsTotal, eventLag)

	return &WorkerMetrics{
		registry:    registry,
		eventsTotal: eventsTotal,
		eventLag:    eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveEvent(to string, lag time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.eventsTotal.WithLabelValues(to, outcome).Inc()
	if lag >= 0 {
		m.eventLag.WithLabelValues(to).Observe(lag.Seconds())
	}
}
