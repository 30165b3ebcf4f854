package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/storage"
)

var now = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

// seedDays stores one record per day, finishing 0..n-1 days before now.
func seedDays(t *testing.T, s evidence.Storage, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		finished := now.AddDate(0, 0, -i)
		err := s.Store(context.Background(), &evidence.ScenarioRecord{
			ID:         fmt.Sprintf("r%d", i),
			RunID:      "run",
			Language:   "Korean",
			Hypothesis: "h",
			Outcome:    evidence.OutcomeAccepted,
			StartedAt:  finished.Add(-time.Second),
			FinishedAt: finished,
		})
		if err != nil {
			t.Fatalf("Store() error: %v", err)
		}
	}
}

func TestPruner_ByAge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDays(t, store, 10)

	p := NewPruner(store, &Config{RetentionDays: 7}, WithClock(func() time.Time { return now }))
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	// Days 7, 8 and 9 are at or past the cutoff.
	if deleted != 3 {
		t.Errorf("Prune() deleted %d, want 3", deleted)
	}
	if store.Size() != 7 {
		t.Errorf("remaining = %d, want 7", store.Size())
	}
}

func TestPruner_ByCountWithArchive(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDays(t, store, 5)
	dir := t.TempDir()

	p := NewPruner(store, &Config{MaxRecords: 2, ArchiveDir: dir}, WithClock(func() time.Time { return now }))
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Prune() deleted %d, want 3", deleted)
	}

	left, _ := store.Query(context.Background(), &evidence.Query{})
	for _, r := range left {
		if r.ID != "r0" && r.ID != "r1" {
			t.Errorf("kept %s, want only the two newest", r.ID)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "scenarios-count-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v (err %v), want one", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var archived []evidence.ScenarioRecord
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not JSON: %v", err)
	}
	if len(archived) != 3 {
		t.Errorf("archived %d records, want 3", len(archived))
	}
}

func TestPruner_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedDays(t, store, 3)

	p := NewPruner(store, nil)
	if p.config.Enabled() {
		t.Fatal("nil config should disable pruning")
	}
	deleted, err := p.Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Prune() = %d, %v; want 0, nil", deleted, err)
	}
}
