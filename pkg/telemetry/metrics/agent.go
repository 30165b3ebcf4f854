package metrics

import (
	"mercator-hq/polyglot/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AgentMetrics tracks LLM agent round trips.
//
// Metrics:
//   - polyglot_agent_calls_total: calls by role and status
//   - polyglot_agent_call_duration_seconds: call latency by role
//   - polyglot_agent_generation_retries_total: empty-sentence retries
type AgentMetrics struct {
	callsTotal        *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
	generationRetries *prometheus.CounterVec
}

// NewAgentMetrics creates and registers agent metrics.
func NewAgentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AgentMetrics {
	am := &AgentMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "agent",
				Name:      "calls_total",
				Help:      "Total number of agent calls",
			},
			[]string{"role", "status"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "agent",
				Name:      "call_duration_seconds",
				Help:      "Duration of agent calls in seconds",
				Buckets:   cfg.StageDurationBuckets,
			},
			[]string{"role"},
		),

		generationRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "agent",
				Name:      "generation_retries_total",
				Help:      "Total number of generation calls retried after an empty sentence",
			},
			[]string{"role"},
		),
	}

	registry.MustRegister(am.callsTotal, am.callDuration, am.generationRetries)

	return am
}
