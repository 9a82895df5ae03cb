package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VasquezCodes/CineMatch-sub000/internal/worker"
)

// Metrics groups all Prometheus instruments used across the pipeline.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsProcessed    *prometheus.CounterVec
	WorkerInvocations *prometheus.CounterVec
	EnrichmentLatency prometheus.Histogram
	QueueDepth        prometheus.Gauge
	BackfillUpdated   prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_items_processed_total",
			Help: "Queue items settled by the import worker, by outcome.",
		}, []string{"outcome"}),

		WorkerInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_invocations_total",
			Help: "Worker invocations, by worker and stop reason.",
		}, []string{"worker", "reason"}),

		EnrichmentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_provider_latency_seconds",
			Help:    "Latency of individual metadata provider calls.",
			Buckets: prometheus.DefBuckets,
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "import_queue_depth",
			Help: "Pending items in the import queue at last observation.",
		}),

		BackfillUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backfill_movies_updated_total",
			Help: "Movies that received a backdrop URL from the backfill worker.",
		}),
	}

	reg.MustRegister(
		m.ItemsProcessed,
		m.WorkerInvocations,
		m.EnrichmentLatency,
		m.QueueDepth,
		m.BackfillUpdated,
	)

	return m
}

// WorkerHooks returns the callbacks expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker package stays
// metrics-agnostic.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnItem: func(outcome string) {
			m.ItemsProcessed.WithLabelValues(outcome).Inc()
		},
		OnInvocation: func(w, reason string) {
			m.WorkerInvocations.WithLabelValues(w, reason).Inc()
		},
		OnBackfillUpdated: func(count int) {
			m.BackfillUpdated.Add(float64(count))
		},
		OnQueueDepth: func(pending int) {
			m.QueueDepth.Set(float64(pending))
		},
	}
}

// ProviderHook returns the latency observer injected into the enricher.
func (m *Metrics) ProviderHook() func(time.Duration) {
	return func(d time.Duration) {
		m.EnrichmentLatency.Observe(d.Seconds())
	}
}
