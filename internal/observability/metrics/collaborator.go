package metrics

import "github.com/prometheus/client_golang/prometheus"

// CollaboratorMetrics tracks retries and breaker state for outbound calls.
type CollaboratorMetrics struct {
	retriesTotal *prometheus.CounterVec
	breakerOpen  *prometheus.GaugeVec
}

func NewCollaboratorMetrics(service string, registerer prometheus.Registerer) *CollaboratorMetrics {
	labels := prometheus.Labels{"service": service}

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docledger",
			Subsystem:   "collaborator",
			Name:        "retries_total",
			Help:        "Total retries scheduled per collaborator operation.",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "docledger",
			Subsystem:   "collaborator",
			Name:        "breaker_open",
			Help:        "1 while the operation's circuit breaker is open or half-open.",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	registerer.MustRegister(retriesTotal, breakerOpen)

	return &CollaboratorMetrics{retriesTotal: retriesTotal, breakerOpen: breakerOpen}
}

func (m *CollaboratorMetrics) RetryScheduled(operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *CollaboratorMetrics) BreakerStateChanged(operation, state string) {
	value := 0.0
	if state != "closed" {
		value = 1
	}
	m.breakerOpen.WithLabelValues(operation).Set(value)
}
