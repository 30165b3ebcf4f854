package tracing

import "go.opentelemetry.io/otel/attribute"

// Span names.
const (
	SpanBatch     = "scheduler.batch"
	SpanScenario  = "workflow.scenario"
	SpanGenerate  = "workflow.generate"
	SpanEvaluate  = "workflow.evaluate"
	SpanEvaluator = "workflow.evaluator"
	SpanRefine    = "workflow.refine"
	SpanMerge     = "dataset.merge"
	SpanAgentCall = "agent.call"
)

// Attribute keys.
const (
	AttrRunID       = attribute.Key("polyglot.run_id")
	AttrScenarioID  = attribute.Key("polyglot.scenario.id")
	AttrLanguage    = attribute.Key("polyglot.language")
	AttrRole        = attribute.Key("polyglot.agent.role")
	AttrAttempt     = attribute.Key("polyglot.agent.attempt")
	AttrModel       = attribute.Key("polyglot.agent.model")
	AttrScore       = attribute.Key("polyglot.score")
	AttrRefineCount = attribute.Key("polyglot.refine_count")
	AttrDecision    = attribute.Key("polyglot.decision")
	AttrWindowStart = attribute.Key("polyglot.window.start")
	AttrWindowEnd   = attribute.Key("polyglot.window.end")
	AttrMergeResult = attribute.Key("polyglot.merge.result")
)
