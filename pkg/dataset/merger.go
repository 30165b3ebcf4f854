package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"mercator-hq/polyglot/pkg/telemetry/metrics"
	"mercator-hq/polyglot/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// Outcome is the effect of a merge on the output TSV.
type Outcome string

const (
	Inserted Outcome = "inserted"
	Updated  Outcome = "updated"
	Skipped  Outcome = "skipped"
)

// Resolver maps an original hypothesis to its TSV key.
type Resolver interface {
	Lookup(hypothesis string) (Key, bool)
}

// Merger persists accepted scenarios for one embedded language:
//
//	<dir>/<lang>.jsonl          audit log, one Record per line
//	<dir>/<lang>_dataset.json   accepted translations, one JSON string per line
//	<dir>/cs_<lang>_test.tsv    sentence1/sentence2/gold_label, keyed by (premise, label)
//
// Merges are serialized; the TSV is rewritten atomically on every merge.
type Merger struct {
	dir      string
	language string
	resolver Resolver
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger

	mu sync.Mutex
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithMergeMetrics records merge outcomes on c.
func WithMergeMetrics(c *metrics.Collector) MergerOption {
	return func(m *Merger) { m.metrics = c }
}

// WithMergeTracer wraps merges in dataset.merge spans.
func WithMergeTracer(t *tracing.Tracer) MergerOption {
	return func(m *Merger) { m.tracer = t }
}

// WithMergeLogger sets the logger.
func WithMergeLogger(l *slog.Logger) MergerOption {
	return func(m *Merger) { m.logger = l }
}

// NewMerger creates dir if needed and returns a merger writing the
// artifacts of language into it.
func NewMerger(dir, language string, resolver Resolver, opts ...MergerOption) (*Merger, error) {
	if language == "" {
		return nil, fmt.Errorf("merger language is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageError(dir, "mkdir", err)
	}

	m := &Merger{
		dir:      dir,
		language: language,
		resolver: resolver,
		tracer:   tracing.Noop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "merger", "language", language)
	return m, nil
}

// AuditPath returns the audit log path.
func (m *Merger) AuditPath() string {
	return filepath.Join(m.dir, auditFileName(m.language))
}

// TranslationsPath returns the translations file path.
func (m *Merger) TranslationsPath() string {
	return filepath.Join(m.dir, translationsFileName(m.language))
}

// TablePath returns the output TSV path.
func (m *Merger) TablePath() string {
	return filepath.Join(m.dir, tableFileName(m.language))
}

// Merge appends rec to the audit log and the translations file, then
// upserts the TSV row keyed by the premise and label of rec.Hypothesis.
// A hypothesis the resolver does not know is logged and Skipped; the audit
// and translations appends are kept.
//
// Merge refuses to write once ctx is done, checked again after the merge
// lock is taken, so abandoned scenarios are never persisted. The table is
// read before anything is appended; a merge that fails to read it leaves
// no audit entry. A merge past that point runs to completion.
func (m *Merger) Merge(ctx context.Context, rec Record) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, span := m.tracer.Start(ctx, tracing.SpanMerge, trace.WithAttributes(
		tracing.AttrScenarioID.Int(rec.ScenarioID),
		tracing.AttrLanguage.String(m.language),
	))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		tracing.SetError(span, err)
		return "", err
	}

	table, err := ReadTable(m.TablePath())
	if err != nil {
		tracing.SetError(span, err)
		return "", err
	}

	if err := appendJSONLine(m.AuditPath(), rec); err != nil {
		tracing.SetError(span, err)
		return "", err
	}
	if err := appendJSONLine(m.TranslationsPath(), rec.Translation); err != nil {
		tracing.SetError(span, err)
		return "", err
	}

	outcome := m.apply(ctx, table, rec)
	if outcome != Skipped {
		if err := table.Write(m.TablePath()); err != nil {
			tracing.SetError(span, err)
			return "", err
		}
	}

	m.metrics.RecordMerge(string(outcome))
	tracing.SetAttributes(span, tracing.AttrMergeResult.String(string(outcome)))
	tracing.SetOK(span)
	return outcome, nil
}

// apply upserts rec into table.
func (m *Merger) apply(ctx context.Context, table *Table, rec Record) Outcome {
	if rec.Translation == "" {
		return Skipped
	}
	key, ok := m.resolver.Lookup(rec.Hypothesis)
	if !ok {
		m.logger.WarnContext(ctx, "hypothesis not found in source dataset, TSV row skipped",
			"scenario_id", rec.ScenarioID,
			"hypothesis", rec.Hypothesis,
		)
		return Skipped
	}
	if table.Upsert(key, rec.Translation) {
		return Inserted
	}
	return Updated
}

// RebuildStats summarizes a rebuild.
type RebuildStats struct {
	Records  int `json:"records"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Rows     int `json:"rows"`
}

// Rebuild replays the whole audit log into the TSV. With fresh set the
// table starts empty; otherwise existing rows are kept and updated in
// place. Replaying the same log twice yields the same file.
func (m *Merger) Rebuild(ctx context.Context, fresh bool) (RebuildStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats RebuildStats

	records, err := ReadAudit(m.AuditPath())
	if err != nil {
		return stats, err
	}

	table := &Table{}
	if !fresh {
		if table, err = ReadTable(m.TablePath()); err != nil {
			return stats, err
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Records++
		switch m.apply(ctx, table, rec) {
		case Inserted:
			stats.Inserted++
		case Updated:
			stats.Updated++
		case Skipped:
			stats.Skipped++
		}
	}

	if err := table.Write(m.TablePath()); err != nil {
		return stats, err
	}
	stats.Rows = len(table.Rows)

	m.logger.InfoContext(ctx, "TSV rebuilt from audit log",
		"records", stats.Records,
		"rows", stats.Rows,
		"skipped", stats.Skipped,
	)
	return stats, nil
}
