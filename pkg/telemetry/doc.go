// Package telemetry groups the observability layers of Polyglot.
//
// Subpackages:
//   - logging: slog setup with run and scenario fields taken from context
//   - metrics: Prometheus collector for workflow, agent and scheduler metrics
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//
// New builds all three from a TelemetryConfig.
package telemetry
