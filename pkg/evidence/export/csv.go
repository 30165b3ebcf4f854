package export

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"mercator-hq/polyglot/pkg/evidence"
)

// CSVExporter writes records as one CSV row each. Per-evaluator scores are
// flattened into a single "name=score;..." column.
type CSVExporter struct {
	// IncludeHeader writes the column names first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the CSV column names.
func Header() []string {
	return []string{
		"id", "run_id", "scenario_id", "language",
		"hypothesis", "translation",
		"outcome", "failed_stage", "error", "merge_outcome",
		"score", "scores", "refine_count", "rounds",
		"prompt_revision", "started_at", "finished_at", "duration_ms",
	}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.ScenarioRecord, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}
	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.ScenarioRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func recordToRow(r *evidence.ScenarioRecord) []string {
	return []string{
		r.ID,
		r.RunID,
		strconv.Itoa(r.ScenarioID),
		r.Language,
		r.Hypothesis,
		r.Translation,
		string(r.Outcome),
		r.FailedStage,
		r.Error,
		r.MergeOutcome,
		strconv.FormatFloat(r.Score, 'f', 2, 64),
		formatScores(r.Scores),
		strconv.Itoa(r.RefineCount),
		strconv.Itoa(r.Rounds),
		r.PromptRevision,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		strconv.FormatInt(r.Duration().Milliseconds(), 10),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatScores renders scores sorted by evaluator name.
func formatScores(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatFloat(scores[name], 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}
