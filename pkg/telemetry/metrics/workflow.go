package metrics

import (
	"mercator-hq/polyglot/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics tracks scenario lifecycle metrics.
//
// Metrics:
//   - polyglot_workflow_scenarios_total: finished scenarios by language and outcome
//   - polyglot_workflow_stage_duration_seconds: time per state machine stage
//   - polyglot_workflow_refinements_total: refinement rounds performed
//   - polyglot_workflow_final_score: aggregate score of accepted scenarios
//   - polyglot_workflow_merges_total: artifact merges by result
type WorkflowMetrics struct {
	scenariosTotal   *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	refinementsTotal *prometheus.CounterVec
	finalScore       *prometheus.HistogramVec
	mergesTotal      *prometheus.CounterVec
}

// NewWorkflowMetrics creates and registers workflow metrics.
func NewWorkflowMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *WorkflowMetrics {
	wm := &WorkflowMetrics{
		scenariosTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "workflow",
				Name:      "scenarios_total",
				Help:      "Total number of finished scenarios",
			},
			[]string{"language", "outcome"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "workflow",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each workflow stage",
				Buckets:   cfg.StageDurationBuckets,
			},
			[]string{"stage"},
		),

		refinementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "workflow",
				Name:      "refinements_total",
				Help:      "Total number of refinement rounds",
			},
			[]string{"language"},
		),

		finalScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "workflow",
				Name:      "final_score",
				Help:      "Aggregate score of accepted scenarios",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"language"},
		),

		mergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "workflow",
				Name:      "merges_total",
				Help:      "Total number of dataset merges by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		wm.scenariosTotal,
		wm.stageDuration,
		wm.refinementsTotal,
		wm.finalScore,
		wm.mergesTotal,
	)

	return wm
}
