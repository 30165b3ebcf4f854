package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/polyglot/pkg/agent"
	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/scoring"
	"mercator-hq/polyglot/pkg/telemetry/logging"
	"mercator-hq/polyglot/pkg/telemetry/metrics"
	"mercator-hq/polyglot/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Merger persists an accepted scenario.
type Merger interface {
	Merge(ctx context.Context, rec dataset.Record) (dataset.Outcome, error)
}

// Result is the terminal state of a scenario run.
type Result struct {
	Scenario Scenario

	// Stage is StageDone or StageFailed.
	Stage Stage

	// Err is a *StageError when Stage is StageFailed.
	Err error

	// Rounds is the number of evaluation rounds run.
	Rounds int

	// Merge is the TSV effect of an accepted scenario.
	Merge dataset.Outcome

	Started  time.Time
	Finished time.Time
}

// Accepted reports whether the scenario was accepted and merged.
func (r Result) Accepted() bool {
	return r.Stage == StageDone
}

// Machine runs scenarios through generate, evaluate, aggregate and
// refine-or-accept. A Machine holds no per-scenario state and may run many
// scenarios concurrently.
type Machine struct {
	agent    agent.Agent
	settings Settings
	merger   Merger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithMetrics records stage and scenario metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Machine) { m.metrics = c }
}

// WithTracer emits a span per scenario and stage.
func WithTracer(t *tracing.Tracer) Option {
	return func(m *Machine) { m.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a machine. settings.Policy must be set; a nil policy
// uses scoring.Default.
func NewMachine(a agent.Agent, settings Settings, merger Merger, opts ...Option) *Machine {
	if settings.Policy == nil {
		settings.Policy = scoring.Default()
	}
	m := &Machine{
		agent:    a,
		settings: settings,
		merger:   merger,
		tracer:   tracing.Noop(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "workflow")
	return m
}

// Settings returns the run settings.
func (m *Machine) Settings() Settings {
	return m.settings
}

// Run drives sc to a terminal stage. It never panics on agent failures;
// they end the scenario in StageFailed.
func (m *Machine) Run(ctx context.Context, sc Scenario) Result {
	ctx = logging.WithScenarioID(ctx, sc.ID)
	ctx, span := m.tracer.Start(ctx, tracing.SpanScenario, trace.WithAttributes(
		tracing.AttrScenarioID.Int(sc.ID),
		tracing.AttrLanguage.String(sc.SecondLanguage),
	))
	defer span.End()

	res := Result{Started: m.now()}
	stage := StageGenerating

	for !stage.Terminal() {
		if stage == StageEvaluating {
			res.Rounds++
		}

		began := m.now()
		next, upd, outcome, err := m.step(logging.WithStage(ctx, string(stage)), stage, sc)
		m.metrics.RecordStage(string(stage), m.now().Sub(began))

		if err != nil {
			res.Err = &StageError{Stage: stage, ScenarioID: sc.ID, Cause: err}
			stage = StageFailed
			break
		}
		if upd != nil {
			upd(&sc)
		}
		if outcome != "" {
			res.Merge = outcome
		}
		stage = next
	}

	res.Scenario = sc
	res.Stage = stage
	res.Finished = m.now()
	m.finish(ctx, span, res)
	return res
}

func (m *Machine) finish(ctx context.Context, span trace.Span, res Result) {
	sc := res.Scenario
	tracing.SetAttributes(span,
		tracing.AttrScore.Float64(sc.AggregateScore),
		tracing.AttrRefineCount.Int(sc.RefineCount),
	)

	if res.Accepted() {
		tracing.SetOK(span)
		m.metrics.RecordScenario(sc.SecondLanguage, metrics.OutcomeAccepted, sc.AggregateScore, sc.RefineCount)
		m.logger.InfoContext(ctx, "scenario accepted",
			"score", sc.AggregateScore,
			"refine_count", sc.RefineCount,
			"rounds", res.Rounds,
			"merge", res.Merge,
			"duration", res.Finished.Sub(res.Started),
		)
		return
	}

	tracing.SetError(span, res.Err)
	outcome := metrics.OutcomeFailed
	if ctx.Err() != nil {
		outcome = metrics.OutcomeAbandoned
	}
	m.metrics.RecordScenario(sc.SecondLanguage, outcome, sc.AggregateScore, sc.RefineCount)
	m.logger.ErrorContext(ctx, "scenario failed",
		"error", res.Err,
		"refine_count", sc.RefineCount,
		"rounds", res.Rounds,
	)
}

// step runs one stage against a snapshot of the scenario and returns the
// next stage and the state change to apply.
func (m *Machine) step(ctx context.Context, stage Stage, sc Scenario) (Stage, update, dataset.Outcome, error) {
	switch stage {
	case StageGenerating:
		t, err := m.generate(ctx, tracing.SpanGenerate, agent.RoleTranslate, sc)
		if err != nil {
			return "", nil, "", err
		}
		return StageEvaluating, setTranslation(t), "", nil

	case StageEvaluating:
		evs, err := m.evaluate(ctx, sc)
		if err != nil {
			return "", nil, "", err
		}
		return StageAggregating, setEvaluations(evs), "", nil

	case StageAggregating:
		score, err := m.settings.Policy.Score(sc.Scores())
		if err != nil {
			return "", nil, "", err
		}
		summary := Summarize(sc.Translation, sc.Evaluations)

		decision := m.settings.Policy.Decide(score, sc.RefineCount)
		m.logger.DebugContext(ctx, "round scored",
			"score", score,
			"refine_count", sc.RefineCount,
			"decision", decision,
		)
		next := StageAccepting
		if decision == scoring.Refine {
			next = StageRefining
		}
		return next, setAggregate(score, summary), "", nil

	case StageRefining:
		t, err := m.generate(ctx, tracing.SpanRefine, agent.RoleRefine, sc)
		if err != nil {
			return "", nil, "", err
		}
		return StageEvaluating, refined(t), "", nil

	case StageAccepting:
		outcome, err := m.accept(ctx, sc)
		if err != nil {
			return "", nil, "", err
		}
		return StageDone, nil, outcome, nil
	}

	return "", nil, "", fmt.Errorf("no transition from stage %q", stage)
}

func (m *Machine) generate(ctx context.Context, spanName string, role agent.Role, sc Scenario) (string, error) {
	ctx, span := m.tracer.Start(ctx, spanName, trace.WithAttributes(
		tracing.AttrRole.String(string(role)),
		tracing.AttrRefineCount.Int(sc.RefineCount),
	))
	defer span.End()

	t, err := m.agent.Generate(ctx, role, sc.input())
	if err != nil {
		tracing.SetError(span, err)
		return "", err
	}
	tracing.SetOK(span)
	return t, nil
}

// evaluate runs every configured evaluator in parallel. Any failure fails
// the round; the others are cancelled.
func (m *Machine) evaluate(ctx context.Context, sc Scenario) ([]agent.Evaluation, error) {
	ctx, span := m.tracer.Start(ctx, tracing.SpanEvaluate)
	defer span.End()

	names := m.settings.Policy.Evaluators()
	results := make([]agent.Evaluation, len(names))
	in := sc.input()

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			ectx, espan := m.tracer.Start(gctx, tracing.SpanEvaluator, trace.WithAttributes(
				tracing.AttrRole.String(string(agent.EvaluatorRole(name))),
			))
			defer espan.End()

			ev, err := m.agent.Evaluate(ectx, name, in)
			if err != nil {
				tracing.SetError(espan, err)
				return fmt.Errorf("evaluator %s: %w", name, err)
			}
			ev.Evaluator = name
			results[i] = *ev
			tracing.SetAttributes(espan, tracing.AttrScore.Float64(ev.Score))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	tracing.SetOK(span)
	return results, nil
}

func (m *Machine) accept(ctx context.Context, sc Scenario) (dataset.Outcome, error) {
	if m.merger == nil {
		return dataset.Skipped, nil
	}
	rec := dataset.Record{
		RunID:          m.settings.RunID,
		ScenarioID:     sc.ID,
		Hypothesis:     sc.Hypothesis,
		FirstLanguage:  sc.FirstLanguage,
		SecondLanguage: sc.SecondLanguage,
		CSRatio:        sc.CSRatio,
		Translation:    sc.Translation,
		Evaluations:    sc.Evaluations,
		Score:          sc.AggregateScore,
		Summary:        sc.Summary,
		RefineCount:    sc.RefineCount,
		PromptRevision: m.settings.Revision(),
		AcceptedAt:     m.now().UTC(),
	}
	return m.merger.Merge(ctx, rec)
}

// coreEvaluators lead the summary in this order; other evaluators follow
// in configured order.
var coreEvaluators = []string{agent.EvaluatorAccuracy, agent.EvaluatorFluency, agent.EvaluatorNaturalness}

// Summarize renders the critique of a round:
//
//	data_translation_result: {"hypo":"..."}
//	Accuracy Result: {...}
//	Fluency Result: {...}
//	Naturalness Result: {...}
//
// followed by "<Title> Result: {...}" for every other evaluator.
func Summarize(translation string, evaluations []agent.Evaluation) string {
	var b strings.Builder
	hypo, _ := json.Marshal(map[string]string{"hypo": translation})
	fmt.Fprintf(&b, "data_translation_result: %s\n", hypo)

	byName := make(map[string]agent.Evaluation, len(evaluations))
	for _, ev := range evaluations {
		byName[ev.Evaluator] = ev
	}

	written := make(map[string]bool, len(evaluations))
	for _, name := range coreEvaluators {
		if ev, ok := byName[name]; ok {
			writeResult(&b, ev)
			written[name] = true
		}
	}
	for _, ev := range evaluations {
		if !written[ev.Evaluator] {
			writeResult(&b, ev)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeResult(b *strings.Builder, ev agent.Evaluation) {
	body := any(ev.Raw)
	if ev.Raw == nil {
		body = struct {
			Score       float64           `json:"score"`
			Annotations map[string]string `json:"annotations,omitempty"`
			Summary     string            `json:"summary"`
		}{ev.Score, ev.Annotations, ev.Summary}
	}
	data, err := json.Marshal(body)
	if err != nil {
		data = []byte(ev.Summary)
	}
	fmt.Fprintf(b, "%s Result: %s\n", agent.Title(ev.Evaluator), data)
}
