package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// PipelineMetrics measures processing pipeline runs and ledger activity.
type PipelineMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	uploadsTotal *prometheus.CounterVec
	postsTotal   prometheus.Counter
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	labels := prometheus.Labels{"service": service}

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docledger",
			Subsystem:   "pipeline",
			Name:        "runs_total",
			Help:        "Total pipeline runs by resting status.",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "docledger",
			Subsystem:   "pipeline",
			Name:        "run_duration_seconds",
			Help:        "Pipeline run duration in seconds by resting status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "docledger",
			Subsystem:   "pipeline",
			Name:        "runs_in_flight",
			Help:        "Number of in-flight pipeline runs.",
			ConstLabels: labels,
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docledger",
			Subsystem:   "registry",
			Name:        "uploads_total",
			Help:        "Total uploads by admission result.",
			ConstLabels: labels,
		},
		[]string{"result"},
	)
	postsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "docledger",
			Subsystem:   "ledger",
			Name:        "posts_total",
			Help:        "Total documents posted to the ledger.",
			ConstLabels: labels,
		},
	)

	registerer.MustRegister(runsTotal, runDuration, runsInFlight, uploadsTotal, postsTotal)

	return &PipelineMetrics{
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		runsInFlight: runsInFlight,
		uploadsTotal: uploadsTotal,
		postsTotal:   postsTotal,
	}
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(outcome domain.DocumentStatus, duration time.Duration) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(string(outcome)).Inc()
	m.runDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

// RecordUpload counts an admission as created, duplicate or existing.
func (m *PipelineMetrics) RecordUpload(result string) {
	m.uploadsTotal.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) RecordPost() {
	m.postsTotal.Inc()
}
