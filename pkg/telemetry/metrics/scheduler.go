package metrics

import (
	"mercator-hq/polyglot/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics tracks batch execution.
type SchedulerMetrics struct {
	inflight           prometheus.Gauge
	batchesTotal       *prometheus.CounterVec
	batchDuration      prometheus.Histogram
	lastBatchCompleted prometheus.Gauge
}

// NewSchedulerMetrics creates and registers scheduler metrics.
func NewSchedulerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchedulerMetrics {
	sm := &SchedulerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scheduler",
			Name:      "inflight_scenarios",
			Help:      "Number of scenarios currently running",
		}),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "scheduler",
				Name:      "batches_total",
				Help:      "Total number of batches by status",
			},
			[]string{"status"},
		),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scheduler",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of each batch",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		lastBatchCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scheduler",
			Name:      "last_batch_completed",
			Help:      "Scenarios completed by the most recent batch",
		}),
	}

	registry.MustRegister(sm.inflight, sm.batchesTotal, sm.batchDuration, sm.lastBatchCompleted)

	return sm
}
