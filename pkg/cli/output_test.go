package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/scheduler"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "text": FormatText, "JSON": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("junit"); err == nil {
		t.Error("ParseFormat(junit) should fail")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"accepted": 3}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil || got["accepted"] != 3 {
		t.Errorf("WriteJSON() wrote %q", buf.String())
	}
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	s := NewStyles(&buf)

	out := s.RenderReport(scheduler.Report{
		RunID:     "run-7",
		Window:    scheduler.Window{Start: 0, End: 40},
		Completed: 38,
		Accepted:  35,
		Failed:    3,
		Abandoned: 2,
		TimedOut:  true,
		Duration:  7200 * time.Second,
	})

	for _, want := range []string{"Batch run-7", "timed out", "[0, 40)", "38 of 40", "35", "abandoned", "2h0m0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRebuild(t *testing.T) {
	var buf bytes.Buffer
	out := NewStyles(&buf).RenderRebuild("cs_Korean_test.tsv", dataset.RebuildStats{Records: 5, Inserted: 3, Updated: 1, Skipped: 1, Rows: 3})
	for _, want := range []string{"cs_Korean_test.tsv", "records", "skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("rebuild output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRecords(t *testing.T) {
	var buf bytes.Buffer
	s := NewStyles(&buf)

	if out := s.RenderRecords(nil); !strings.Contains(out, "no scenario records") {
		t.Errorf("empty listing = %q", out)
	}

	out := s.RenderRecords([]*evidence.ScenarioRecord{
		{ScenarioID: 4, Outcome: evidence.OutcomeAccepted, Score: 8.4, Hypothesis: "A man is sleeping."},
		{ScenarioID: 9, Outcome: evidence.OutcomeFailed, FailedStage: "evaluating", Hypothesis: strings.Repeat("long ", 20)},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "8.40") || !strings.Contains(lines[2], "evaluating") {
		t.Errorf("unexpected rows:\n%s", out)
	}
	if !strings.Contains(lines[2], "…") {
		t.Errorf("long hypothesis not truncated: %q", lines[2])
	}
}
