package metrics

import (
	"time"

	"mercator-hq/polyglot/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Scenario outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// Collector owns every Prometheus metric of a Polyglot process.
//
// A nil Collector, or one built from a disabled config, accepts every
// Record call and does nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	enabled  bool

	workflowMetrics  *WorkflowMetrics
	agentMetrics     *AgentMetrics
	schedulerMetrics *SchedulerMetrics
}

// NewCollector creates a collector and registers its metrics on registry.
// A nil registry gets a fresh one.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.StageDurationBuckets) == 0 {
		cfg.StageDurationBuckets = config.DefaultStageDurationBuckets()
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		enabled:  cfg.IsEnabled(),
	}

	c.workflowMetrics = NewWorkflowMetrics(cfg, registry)
	c.agentMetrics = NewAgentMetrics(cfg, registry)
	c.schedulerMetrics = NewSchedulerMetrics(cfg, registry)

	return c
}

func (c *Collector) active() bool {
	return c != nil && c.enabled
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordScenario records a finished scenario. The outcome is one of
// OutcomeAccepted, OutcomeFailed or OutcomeAbandoned; score is ignored
// unless the scenario was accepted.
func (c *Collector) RecordScenario(language, outcome string, score float64, refineCount int) {
	if !c.active() {
		return
	}
	c.workflowMetrics.scenariosTotal.WithLabelValues(language, outcome).Inc()
	if outcome == OutcomeAccepted {
		c.workflowMetrics.finalScore.WithLabelValues(language).Observe(score)
	}
	if refineCount > 0 {
		c.workflowMetrics.refinementsTotal.WithLabelValues(language).Add(float64(refineCount))
	}
}

// RecordStage records the time spent in one workflow stage.
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.workflowMetrics.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordAgentCall records one agent round trip.
// Status is "success", "empty" or "error".
func (c *Collector) RecordAgentCall(role, status string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.agentMetrics.callsTotal.WithLabelValues(role, status).Inc()
	c.agentMetrics.callDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// RecordGenerationRetry records a translate or refine call retried after
// an empty sentence.
func (c *Collector) RecordGenerationRetry(role string) {
	if !c.active() {
		return
	}
	c.agentMetrics.generationRetries.WithLabelValues(role).Inc()
}

// RecordMerge records one merge into the output artifacts.
// Result is "inserted", "updated" or "skipped".
func (c *Collector) RecordMerge(result string) {
	if !c.active() {
		return
	}
	c.workflowMetrics.mergesTotal.WithLabelValues(result).Inc()
}

// ScenarioStarted increments the in-flight gauge.
func (c *Collector) ScenarioStarted() {
	if !c.active() {
		return
	}
	c.schedulerMetrics.inflight.Inc()
}

// ScenarioFinished decrements the in-flight gauge.
func (c *Collector) ScenarioFinished() {
	if !c.active() {
		return
	}
	c.schedulerMetrics.inflight.Dec()
}

// RecordBatch records a completed (or timed out) batch.
func (c *Collector) RecordBatch(completed int, timedOut bool, duration time.Duration) {
	if !c.active() {
		return
	}
	status := "completed"
	if timedOut {
		status = "timeout"
	}
	c.schedulerMetrics.batchesTotal.WithLabelValues(status).Inc()
	c.schedulerMetrics.batchDuration.Observe(duration.Seconds())
	c.schedulerMetrics.lastBatchCompleted.Set(float64(completed))
}
