package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/evidence"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// backends returns a fresh instance of every storage implementation.
func backends(t *testing.T) map[string]evidence.Storage {
	t.Helper()

	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "evidence.db")
	sqlite, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]evidence.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func testRecord(i int, outcome evidence.Outcome, score float64) *evidence.ScenarioRecord {
	finished := base.Add(time.Duration(i) * time.Minute)
	r := &evidence.ScenarioRecord{
		ID:          fmt.Sprintf("rec-%02d", i),
		RunID:       "run-1",
		ScenarioID:  i,
		Language:    "Korean",
		Hypothesis:  fmt.Sprintf("hypothesis %d", i),
		Translation: fmt.Sprintf("translation %d", i),
		Outcome:     outcome,
		Score:       score,
		Scores:      map[string]float64{"accuracy": score, "fluency": score, "naturalness": score},
		RefineCount: i % 2,
		Rounds:      i%2 + 1,
		Evaluations: json.RawMessage(`[{"evaluator":"accuracy","score":8}]`),
		StartedAt:   finished.Add(-30 * time.Second),
		FinishedAt:  finished,
		RecordedAt:  finished.Add(time.Second),
	}
	if outcome == evidence.OutcomeFailed {
		r.FailedStage = "evaluating"
		r.Error = "evaluator timed out"
		r.Translation = ""
	} else {
		r.MergeOutcome = "inserted"
	}
	return r
}

func seed(t *testing.T, s evidence.Storage) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		outcome := evidence.OutcomeAccepted
		if i%3 == 2 {
			outcome = evidence.OutcomeFailed
		}
		if err := s.Store(ctx, testRecord(i, outcome, float64(4+i))); err != nil {
			t.Fatalf("Store(%d) error: %v", i, err)
		}
	}
}

func TestStorage_StoreAndQueryRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := testRecord(1, evidence.OutcomeAccepted, 8.5)
			want.PromptRevision = "abc123def456"
			want.TranslationHash = "deadbeef"
			if err := s.Store(ctx, want); err != nil {
				t.Fatalf("Store() error: %v", err)
			}

			got, err := s.Query(ctx, &evidence.Query{RunID: "run-1"})
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Query() returned %d records, want 1", len(got))
			}
			r := got[0]
			if r.ID != want.ID || r.Hypothesis != want.Hypothesis || r.Translation != want.Translation {
				t.Errorf("record identity mismatch: %+v", r)
			}
			if r.Outcome != evidence.OutcomeAccepted || r.MergeOutcome != "inserted" {
				t.Errorf("outcome = %q merge = %q", r.Outcome, r.MergeOutcome)
			}
			if r.Score != 8.5 || r.Scores["fluency"] != 8.5 {
				t.Errorf("scores = %v / %v", r.Score, r.Scores)
			}
			if r.PromptRevision != want.PromptRevision || r.TranslationHash != want.TranslationHash {
				t.Errorf("provenance = %q %q", r.PromptRevision, r.TranslationHash)
			}
			if !r.FinishedAt.Equal(want.FinishedAt) || !r.StartedAt.Equal(want.StartedAt) {
				t.Errorf("timestamps = %v %v, want %v %v", r.StartedAt, r.FinishedAt, want.StartedAt, want.FinishedAt)
			}
			if string(r.Evaluations) != string(want.Evaluations) {
				t.Errorf("evaluations = %s", r.Evaluations)
			}
		})
	}
}

func TestStorage_DuplicateID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := testRecord(0, evidence.OutcomeAccepted, 9)
			if err := s.Store(ctx, r); err != nil {
				t.Fatalf("Store() error: %v", err)
			}
			err := s.Store(ctx, r)
			if !errors.Is(err, evidence.ErrDuplicateRecord) {
				t.Fatalf("second Store() error = %v, want ErrDuplicateRecord", err)
			}
		})
	}
}

func TestStorage_Filters(t *testing.T) {
	minScore := 6.0
	maxScore := 8.0
	from := base.Add(2 * time.Minute)
	to := base.Add(4 * time.Minute)

	tests := []struct {
		name  string
		query *evidence.Query
		want  []string
	}{
		{name: "all newest first", query: &evidence.Query{}, want: []string{"rec-05", "rec-04", "rec-03", "rec-02", "rec-01", "rec-00"}},
		{name: "failed only", query: &evidence.Query{Outcome: evidence.OutcomeFailed}, want: []string{"rec-05", "rec-02"}},
		{name: "failed stage", query: &evidence.Query{FailedStage: "evaluating"}, want: []string{"rec-05", "rec-02"}},
		{name: "score range", query: &evidence.Query{MinScore: &minScore, MaxScore: &maxScore}, want: []string{"rec-04", "rec-03", "rec-02"}},
		{name: "time range", query: &evidence.Query{StartTime: &from, EndTime: &to}, want: []string{"rec-04", "rec-03", "rec-02"}},
		{name: "other language", query: &evidence.Query{Language: "Spanish"}, want: nil},
		{name: "sort by score ascending", query: &evidence.Query{SortBy: "score", SortOrder: "asc", Limit: 2}, want: []string{"rec-00", "rec-01"}},
		{name: "offset", query: &evidence.Query{SortBy: "scenario_id", SortOrder: "asc", Offset: 4}, want: []string{"rec-04", "rec-05"}},
	}

	for name, s := range backends(t) {
		seed(t, s)
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := s.Query(context.Background(), tt.query)
				if err != nil {
					t.Fatalf("Query() error: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("Query() returned %d records, want %d", len(got), len(tt.want))
				}
				for i, r := range got {
					if r.ID != tt.want[i] {
						t.Errorf("record[%d] = %s, want %s", i, r.ID, tt.want[i])
					}
				}

				count, err := s.Count(context.Background(), tt.query)
				if err != nil {
					t.Fatalf("Count() error: %v", err)
				}
				if tt.query.Limit == 0 && tt.query.Offset == 0 && count != int64(len(tt.want)) {
					t.Errorf("Count() = %d, want %d", count, len(tt.want))
				}
			})
		}
	}
}

func TestStorage_QueryStream(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recordsCh, errCh, err := s.QueryStream(context.Background(), &evidence.Query{Outcome: evidence.OutcomeAccepted})
			if err != nil {
				t.Fatalf("QueryStream() error: %v", err)
			}
			var n int
			for range recordsCh {
				n++
			}
			if err := <-errCh; err != nil {
				t.Fatalf("stream error: %v", err)
			}
			if n != 4 {
				t.Errorf("streamed %d records, want 4", n)
			}
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			ctx := context.Background()

			cutoff := base.Add(2 * time.Minute)
			deleted, err := s.Delete(ctx, &evidence.Query{EndTime: &cutoff})
			if err != nil {
				t.Fatalf("Delete() error: %v", err)
			}
			if deleted != 3 {
				t.Errorf("Delete() = %d, want 3", deleted)
			}

			remaining, err := s.Count(ctx, &evidence.Query{})
			if err != nil {
				t.Fatalf("Count() error: %v", err)
			}
			if remaining != 3 {
				t.Errorf("remaining = %d, want 3", remaining)
			}
		})
	}
}
