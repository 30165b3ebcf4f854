package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/agent"
	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/storage"
	"mercator-hq/polyglot/pkg/workflow"
)

var started = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func settings() workflow.Settings {
	return workflow.Settings{
		RunID:          "run-42",
		FirstLanguage:  "English",
		SecondLanguage: "Korean",
		CSRatio:        "7:3",
		PromptRevision: func() string { return "0123456789ab" },
	}
}

func acceptedResult() workflow.Result {
	return workflow.Result{
		Scenario: workflow.Scenario{
			ID:             3,
			Hypothesis:     "The man is sleeping.",
			FirstLanguage:  "English",
			SecondLanguage: "Korean",
			CSRatio:        "7:3",
			RefineCount:    1,
			Translation:    "The man is 자고 있다.",
			Evaluations: []agent.Evaluation{
				{Evaluator: "accuracy", Score: 9},
				{Evaluator: "fluency", Score: 8},
				{Evaluator: "naturalness", Score: 9},
			},
			AggregateScore: 8.6,
		},
		Stage:    workflow.StageDone,
		Rounds:   2,
		Merge:    dataset.Inserted,
		Started:  started,
		Finished: started.Add(4 * time.Second),
	}
}

func TestNewRecord_Accepted(t *testing.T) {
	r := NewRecord(settings(), acceptedResult(), started.Add(5*time.Second))

	if r.ID == "" {
		t.Error("record ID is empty")
	}
	if r.RunID != "run-42" || r.ScenarioID != 3 || r.Language != "Korean" {
		t.Errorf("identity = %s/%d/%s", r.RunID, r.ScenarioID, r.Language)
	}
	if r.Outcome != evidence.OutcomeAccepted || r.MergeOutcome != "inserted" {
		t.Errorf("outcome = %s, merge = %s", r.Outcome, r.MergeOutcome)
	}
	if r.Scores["fluency"] != 8 || len(r.Scores) != 3 {
		t.Errorf("scores = %v", r.Scores)
	}
	if r.RefineCount != 1 || r.Rounds != 2 {
		t.Errorf("refine_count = %d rounds = %d", r.RefineCount, r.Rounds)
	}
	if r.PromptRevision != "0123456789ab" {
		t.Errorf("prompt revision = %q", r.PromptRevision)
	}
	if r.TranslationHash != HashString("The man is 자고 있다.") || len(r.TranslationHash) != 64 {
		t.Errorf("translation hash = %q", r.TranslationHash)
	}
	if r.Duration() != 4*time.Second {
		t.Errorf("duration = %v", r.Duration())
	}
}

func TestNewRecord_Failed(t *testing.T) {
	res := workflow.Result{
		Scenario: workflow.Scenario{ID: 7, Hypothesis: "h", SecondLanguage: "Korean"},
		Stage:    workflow.StageFailed,
		Err: &workflow.StageError{
			Stage:      workflow.StageGenerating,
			ScenarioID: 7,
			Cause:      &agent.EmptyResponseError{Role: agent.RoleTranslate},
		},
		Rounds:   0,
		Started:  started,
		Finished: started.Add(time.Second),
	}

	r := NewRecord(settings(), res, started)
	if r.Outcome != evidence.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", r.Outcome)
	}
	if r.FailedStage != "generating" {
		t.Errorf("failed stage = %q, want generating", r.FailedStage)
	}
	if r.Error == "" || r.TranslationHash != "" || r.Scores != nil {
		t.Errorf("failed record = %+v", r)
	}
}

func TestRecorder_WritesAndDrainsOnClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 16, WriteTimeout: time.Second})

	for i := 0; i < 10; i++ {
		res := acceptedResult()
		res.Scenario.ID = i
		if err := rec.Record(context.Background(), settings(), res); err != nil {
			t.Fatalf("Record(%d) error: %v", i, err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if store.Size() != 10 {
		t.Errorf("stored %d records, want 10", store.Size())
	}
	if written, failed := rec.Stats(); written != 10 || failed != 0 {
		t.Errorf("Stats() = %d, %d", written, failed)
	}

	// A second Close is a no-op; Record after Close fails.
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	err := rec.Record(context.Background(), settings(), acceptedResult())
	var recErr *evidence.RecorderError
	if !errors.As(err, &recErr) {
		t.Errorf("Record after Close error = %v, want RecorderError", err)
	}
}

func TestRecorder_CancelledContextStillRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rec.Record(ctx, settings(), acceptedResult()); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	rec.Close()

	if store.Size() != 1 {
		t.Errorf("stored %d records, want 1", store.Size())
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: false, WriteTimeout: time.Second})
	if err := rec.Record(context.Background(), settings(), acceptedResult()); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	rec.Close()
	if store.Size() != 0 {
		t.Errorf("disabled recorder stored %d records", store.Size())
	}
}

// blockingStorage holds every Store call until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	release chan struct{}
}

func (b *blockingStorage) Store(ctx context.Context, r *evidence.ScenarioRecord) error {
	<-b.release
	return b.MemoryStorage.Store(ctx, r)
}

func TestRecorder_FullBufferDropsAfterTimeout(t *testing.T) {
	store := &blockingStorage{MemoryStorage: storage.NewMemoryStorage(), release: make(chan struct{})}
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 1, WriteTimeout: 50 * time.Millisecond})

	// One record is held by the worker, one fills the buffer.
	var dropped int
	for i := 0; i < 3; i++ {
		res := acceptedResult()
		res.Scenario.ID = i
		if err := rec.Record(context.Background(), settings(), res); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("Record(%d) error = %v, want deadline exceeded", i, err)
			}
			dropped++
		}
		time.Sleep(10 * time.Millisecond)
	}
	close(store.release)
	rec.Close()

	if dropped != 1 {
		t.Errorf("dropped %d records, want 1", dropped)
	}
	if store.Size() != 2 {
		t.Errorf("stored %d records, want 2", store.Size())
	}
}
