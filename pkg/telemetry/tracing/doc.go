// Package tracing wires OpenTelemetry tracing for batches, scenarios and
// agent calls.
//
// When disabled, New returns a tracer backed by the noop provider. When
// enabled, spans are batched to an OTLP gRPC collector:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.25
//	    endpoint: otel-collector:4317
//	    insecure: true
//
// A batch produces one scheduler.batch span with a workflow.scenario child
// per scenario, and workflow and agent spans below that.
package tracing
