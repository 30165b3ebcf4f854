package workflow

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/agent"
	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/scoring"
)

// fakeAgent translates to "<hypothesis> #0" and refines to "#1", "#2", ...
// Scores come from scores(translation, evaluator).
type fakeAgent struct {
	scores      func(translation, evaluator string) float64
	generateErr func(role agent.Role) error
	evaluateErr func(evaluator string) error

	mu          sync.Mutex
	generations []agent.Input
	evaluations int32
	refines     int32
}

func (f *fakeAgent) Generate(ctx context.Context, role agent.Role, in agent.Input) (string, error) {
	f.mu.Lock()
	f.generations = append(f.generations, in)
	f.mu.Unlock()

	if f.generateErr != nil {
		if err := f.generateErr(role); err != nil {
			return "", err
		}
	}
	if role == agent.RoleTranslate {
		return in.Hypothesis + " #0", nil
	}
	n := atomic.AddInt32(&f.refines, 1)
	return in.Hypothesis + " #" + string(rune('0'+n)), nil
}

func (f *fakeAgent) Evaluate(ctx context.Context, evaluator string, in agent.Input) (*agent.Evaluation, error) {
	atomic.AddInt32(&f.evaluations, 1)
	if f.evaluateErr != nil {
		if err := f.evaluateErr(evaluator); err != nil {
			return nil, err
		}
	}
	if in.Translation == "" {
		return nil, errors.New("evaluated before translation")
	}
	return &agent.Evaluation{
		Evaluator: evaluator,
		Score:     f.scores(in.Translation, evaluator),
		Summary:   evaluator + " ok",
	}, nil
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func constant(score float64) func(string, string) float64 {
	return func(string, string) float64 { return score }
}

// recordingMerger keeps merged records in memory.
type recordingMerger struct {
	mu      sync.Mutex
	records []dataset.Record
	err     error
}

func (r *recordingMerger) Merge(ctx context.Context, rec dataset.Record) (dataset.Outcome, error) {
	if r.err != nil {
		return "", r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return dataset.Inserted, nil
}

func testSettings() Settings {
	return Settings{
		RunID:          "run-1",
		FirstLanguage:  "English",
		SecondLanguage: "es",
		CSRatio:        "7:3",
		Policy:         scoring.Default(),
		PromptRevision: func() string { return "builtin" },
	}
}

func run(t *testing.T, a agent.Agent, merger Merger, settings Settings) Result {
	t.Helper()
	m := NewMachine(a, settings, merger)
	return m.Run(context.Background(), NewScenario(0, "The cat sat on the mat.", settings))
}

func TestMachine_AcceptsHighScoreWithoutRefining(t *testing.T) {
	a := &fakeAgent{scores: constant(9)}
	merger := &recordingMerger{}

	res := run(t, a, merger, testSettings())

	if !res.Accepted() {
		t.Fatalf("expected accepted, got %s: %v", res.Stage, res.Err)
	}
	if res.Scenario.RefineCount != 0 {
		t.Errorf("RefineCount = %d, want 0", res.Scenario.RefineCount)
	}
	if !approx(res.Scenario.AggregateScore, 9) {
		t.Errorf("AggregateScore = %v, want 9", res.Scenario.AggregateScore)
	}
	if res.Rounds != 1 {
		t.Errorf("Rounds = %d, want 1", res.Rounds)
	}
	if a.evaluations != 3 {
		t.Errorf("evaluations = %d, want 3", a.evaluations)
	}

	if len(merger.records) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merger.records))
	}
	rec := merger.records[0]
	if rec.Translation != "The cat sat on the mat. #0" || rec.SecondLanguage != "es" || rec.RunID != "run-1" {
		t.Errorf("merged record = %+v", rec)
	}
	if rec.PromptRevision != "builtin" {
		t.Errorf("PromptRevision = %q", rec.PromptRevision)
	}
	if res.Merge != dataset.Inserted {
		t.Errorf("Merge = %q, want inserted", res.Merge)
	}
}

func TestMachine_RefinesOnceThenAccepts(t *testing.T) {
	a := &fakeAgent{scores: constant(5)}
	merger := &recordingMerger{}

	res := run(t, a, merger, testSettings())

	if !res.Accepted() {
		t.Fatalf("expected forced acceptance, got %s: %v", res.Stage, res.Err)
	}
	if res.Scenario.RefineCount != 1 {
		t.Errorf("RefineCount = %d, want 1", res.Scenario.RefineCount)
	}
	if res.Rounds != 2 {
		t.Errorf("Rounds = %d, want 2", res.Rounds)
	}
	if got := merger.records[0].Translation; got != "The cat sat on the mat. #1" {
		t.Errorf("merged translation = %q, want refined candidate", got)
	}

	// The refine call sees the critique of the first round.
	refine := a.generations[1]
	if !strings.Contains(refine.Summary, "data_translation_result:") || refine.Translation != "The cat sat on the mat. #0" {
		t.Errorf("refine input = %+v", refine)
	}
}

func TestMachine_RefineImprovesScore(t *testing.T) {
	a := &fakeAgent{scores: func(translation, _ string) float64 {
		if strings.HasSuffix(translation, "#0") {
			return 6
		}
		return 9
	}}
	settings := testSettings()
	p, _ := scoring.NewPolicy([]scoring.Weight{
		{Evaluator: "accuracy", Weight: 0.3},
		{Evaluator: "fluency", Weight: 0.4},
		{Evaluator: "naturalness", Weight: 0.3},
	}, 8, 3)
	settings.Policy = p

	res := run(t, a, &recordingMerger{}, settings)
	if !res.Accepted() || res.Scenario.RefineCount != 1 {
		t.Fatalf("stage=%s refine=%d err=%v", res.Stage, res.Scenario.RefineCount, res.Err)
	}
	if !approx(res.Scenario.AggregateScore, 9) {
		t.Errorf("AggregateScore = %v, want 9", res.Scenario.AggregateScore)
	}
}

func TestMachine_RefineBound(t *testing.T) {
	for _, maxRefine := range []int{0, 1, 2, 4} {
		a := &fakeAgent{scores: constant(1)}
		settings := testSettings()
		p, err := scoring.NewPolicy([]scoring.Weight{{Evaluator: "fluency", Weight: 1}}, 8, maxRefine)
		if err != nil {
			t.Fatal(err)
		}
		settings.Policy = p

		res := run(t, a, &recordingMerger{}, settings)
		if !res.Accepted() {
			t.Fatalf("maxRefine=%d: stage=%s err=%v", maxRefine, res.Stage, res.Err)
		}
		if res.Scenario.RefineCount != maxRefine {
			t.Errorf("maxRefine=%d: RefineCount = %d", maxRefine, res.Scenario.RefineCount)
		}
		if res.Rounds != maxRefine+1 {
			t.Errorf("maxRefine=%d: Rounds = %d, want %d", maxRefine, res.Rounds, maxRefine+1)
		}
	}
}

func TestMachine_GenerationFailure(t *testing.T) {
	boom := errors.New("provider down")
	a := &fakeAgent{scores: constant(9), generateErr: func(agent.Role) error { return boom }}
	merger := &recordingMerger{}

	res := run(t, a, merger, testSettings())

	if res.Stage != StageFailed {
		t.Fatalf("Stage = %s, want failed", res.Stage)
	}
	var se *StageError
	if !errors.As(res.Err, &se) || se.Stage != StageGenerating {
		t.Errorf("Err = %v, want StageError in generating", res.Err)
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("Err does not wrap cause: %v", res.Err)
	}
	if a.evaluations != 0 {
		t.Errorf("evaluations = %d, want 0", a.evaluations)
	}
	if len(merger.records) != 0 {
		t.Error("failed scenario was merged")
	}
}

func TestMachine_EmptyGenerationExhaustsRetryBudget(t *testing.T) {
	var calls int32
	a := &fakeAgent{scores: constant(9), generateErr: func(role agent.Role) error {
		atomic.AddInt32(&calls, 1)
		return &agent.EmptyResponseError{Role: role}
	}}

	res := run(t, agent.NewRetrying(a, 4, nil, nil), &recordingMerger{}, testSettings())

	if res.Stage != StageFailed {
		t.Fatalf("Stage = %s, want failed", res.Stage)
	}
	if calls != 4 {
		t.Errorf("translate attempts = %d, want 4", calls)
	}
}

func TestMachine_PartialEvaluationFailureFailsRound(t *testing.T) {
	a := &fakeAgent{scores: constant(9), evaluateErr: func(ev string) error {
		if ev == agent.EvaluatorFluency {
			return &agent.MalformedResponseError{Role: agent.EvaluatorRole(ev), Reason: "score 12 outside [0, 10]"}
		}
		return nil
	}}
	merger := &recordingMerger{}

	res := run(t, a, merger, testSettings())

	var se *StageError
	if !errors.As(res.Err, &se) || se.Stage != StageEvaluating {
		t.Fatalf("Err = %v, want StageError in evaluating", res.Err)
	}
	var malformed *agent.MalformedResponseError
	if !errors.As(res.Err, &malformed) {
		t.Errorf("Err should wrap MalformedResponseError: %v", res.Err)
	}
	if len(merger.records) != 0 {
		t.Error("failed scenario was merged")
	}
}

func TestMachine_MergeFailureFailsScenario(t *testing.T) {
	merger := &recordingMerger{err: errors.New("disk full")}

	res := run(t, &fakeAgent{scores: constant(9)}, merger, testSettings())

	var se *StageError
	if !errors.As(res.Err, &se) || se.Stage != StageAccepting {
		t.Fatalf("Err = %v, want StageError in accepting", res.Err)
	}
}

func TestMachine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeAgent{scores: constant(9), generateErr: func(agent.Role) error {
		cancel()
		return ctx.Err()
	}}
	settings := testSettings()
	merger := &recordingMerger{}

	res := NewMachine(a, settings, merger).Run(ctx, NewScenario(3, "h", settings))
	if res.Stage != StageFailed || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("stage=%s err=%v", res.Stage, res.Err)
	}
}

func TestMachine_PluginEvaluators(t *testing.T) {
	a := &fakeAgent{scores: func(_, ev string) float64 {
		if ev == agent.EvaluatorCSRatio {
			return 10
		}
		return 8
	}}
	settings := testSettings()
	p, err := scoring.NewPolicy([]scoring.Weight{
		{Evaluator: "accuracy", Weight: 0.25},
		{Evaluator: "fluency", Weight: 0.25},
		{Evaluator: "naturalness", Weight: 0.25},
		{Evaluator: "cs_ratio", Weight: 0.25},
	}, 8, 1)
	if err != nil {
		t.Fatal(err)
	}
	settings.Policy = p

	res := run(t, a, &recordingMerger{}, settings)
	if !res.Accepted() {
		t.Fatalf("stage=%s err=%v", res.Stage, res.Err)
	}
	if res.Scenario.AggregateScore != 8.5 {
		t.Errorf("AggregateScore = %v, want 8.5", res.Scenario.AggregateScore)
	}
	if !strings.Contains(res.Scenario.Summary, "CS Ratio Result:") {
		t.Errorf("summary missing plug-in line:\n%s", res.Scenario.Summary)
	}
}

func TestSummarize(t *testing.T) {
	evs := []agent.Evaluation{
		{Evaluator: "socio_cultural", Score: 7, Raw: map[string]any{"socio_cultural_score": 7.0}},
		{Evaluator: "naturalness", Score: 6, Summary: "ok"},
		{Evaluator: "accuracy", Score: 9, Raw: map[string]any{"accuracy_score": 9.0, "summary": "good"}},
		{Evaluator: "fluency", Score: 8, Raw: map[string]any{"fluency_score": 8.0}},
	}

	got := Summarize("El gato", evs)
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), got)
	}

	prefixes := []string{
		`data_translation_result: {"hypo":"El gato"}`,
		`Accuracy Result: {"accuracy_score":9,"summary":"good"}`,
		`Fluency Result: {"fluency_score":8}`,
		`Naturalness Result: {"score":6,"summary":"ok"}`,
		`Socio Cultural Result: {"socio_cultural_score":7}`,
	}
	for i, want := range prefixes {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestMachine_EndToEndWithDatasetMerger(t *testing.T) {
	src := dataset.NewSource("en", []dataset.Example{
		{Premise: "A cat is on a mat.", Hypothesis: "The cat sat on the mat.", Label: dataset.LabelEntailment},
	})
	dir := filepath.Join(t.TempDir(), "out")
	merger, err := dataset.NewMerger(dir, "es", src)
	if err != nil {
		t.Fatal(err)
	}

	settings := testSettings()
	clock := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	m := NewMachine(&fakeAgent{scores: constant(5)}, settings, merger, WithClock(func() time.Time { return clock }))

	res := m.Run(context.Background(), NewScenario(0, "The cat sat on the mat.", settings))
	if !res.Accepted() || res.Scenario.RefineCount != 1 {
		t.Fatalf("stage=%s refine=%d err=%v", res.Stage, res.Scenario.RefineCount, res.Err)
	}

	table, err := dataset.ReadTable(merger.TablePath())
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Translation != "The cat sat on the mat. #1" {
		t.Errorf("table = %+v", table.Rows)
	}

	audit, err := dataset.ReadAudit(merger.AuditPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 1 || audit[0].RefineCount != 1 || !audit[0].AcceptedAt.Equal(clock) {
		t.Errorf("audit = %+v", audit)
	}
	if len(audit[0].Evaluations) != 3 {
		t.Errorf("audit evaluations = %d, want 3", len(audit[0].Evaluations))
	}
}
