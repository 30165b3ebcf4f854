// Package metrics exposes Prometheus metrics for workflow stages, agent
// calls and batch scheduling.
//
// All metric names are prefixed by the configured namespace (default
// "polyglot") and grouped by subsystem: workflow, agent and scheduler.
// Label values are drawn from small fixed sets (stage names, agent roles,
// outcomes and the run language), so no cardinality limiting is applied.
package metrics
