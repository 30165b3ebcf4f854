package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/export"
	"mercator-hq/polyglot/pkg/evidence/query"
	"mercator-hq/polyglot/pkg/evidence/retention"
)

// auditFilter holds the record filters shared by query and export.
type auditFilter struct {
	timeRange string
	since     time.Duration
	runID     string
	language  string
	outcome   string
	stage     string
	minScore  float64
	maxScore  float64
	limit     int
	offset    int
	sortBy    string
	sortOrder string
}

var (
	auditQueryFilter  auditFilter
	auditExportFilter auditFilter

	auditQueryFlags struct {
		format string
	}

	auditExportFlags struct {
		format string
		output string
		pretty bool
	}

	auditPruneFlags struct {
		days       int
		maxRecords int64
		archiveDir string
	}
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the scenario evidence store",
	Long: `Query, export and prune the records of finished scenarios.

Every scenario that reaches Done or Failed is recorded with its outcome, the
stage it failed in, per-evaluator scores, refinement rounds and the prompt
revision in effect. Abandoned scenarios are not recorded.

Subcommands:
  query   - List records matching filters
  export  - Stream matching records as JSON or CSV
  prune   - Apply the retention policy now

Time Range Format:
  RFC3339 interval "start/end" on the scenario finish time.
  Example: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query scenario records",
	Long: `List scenario records matching the given filters.

Examples:
  # Failures of the last day
  polyglot audit query --since 24h --outcome failed

  # Evaluation failures of one run
  polyglot audit query --run-id 5f0c... --stage evaluating

  # Accepted scenarios that needed refinement, best first
  polyglot audit query --outcome accepted --sort-by score --sort-order desc --format json`,
	RunE: runAuditQuery,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scenario records",
	Long: `Stream scenario records matching the given filters as JSON or CSV.

Records are streamed from the store, so large exports do not load every
record into memory. Without --limit up to 10000 records are exported.

Examples:
  # Export everything as CSV
  polyglot audit export --format csv --output scenarios.csv

  # Export one language as pretty JSON
  polyglot audit export --language Spanish --pretty`,
	RunE: runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the evidence retention policy",
	Long: `Delete records older than evidence.retention.days, then the oldest
records beyond evidence.retention.max_records. When an archive directory is
configured, pruned records are written there as JSON before deletion.

Examples:
  # Use the configured policy
  polyglot audit prune

  # Keep one week, archive what is removed
  polyglot audit prune --days 7 --archive-dir data_output/archive`,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd, auditPruneCmd)

	addFilterFlags(auditQueryCmd, &auditQueryFilter)
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.format, "format", "text", "output format: text, json")

	addFilterFlags(auditExportCmd, &auditExportFilter)
	auditExportCmd.Flags().StringVar(&auditExportFlags.format, "format", "json", "export format: json, csv")
	auditExportCmd.Flags().StringVarP(&auditExportFlags.output, "output", "o", "", "output file (default stdout)")
	auditExportCmd.Flags().BoolVar(&auditExportFlags.pretty, "pretty", false, "indent JSON output")

	auditPruneCmd.Flags().IntVar(&auditPruneFlags.days, "days", 0, "retention period in days (overrides evidence.retention.days)")
	auditPruneCmd.Flags().Int64Var(&auditPruneFlags.maxRecords, "max-records", 0, "maximum records kept (overrides evidence.retention.max_records)")
	auditPruneCmd.Flags().StringVar(&auditPruneFlags.archiveDir, "archive-dir", "", "archive directory (overrides evidence.retention.archive_dir)")
}

func addFilterFlags(cmd *cobra.Command, f *auditFilter) {
	flags := cmd.Flags()
	flags.StringVar(&f.timeRange, "time-range", "", "finish time interval (RFC3339 start/end)")
	flags.DurationVar(&f.since, "since", 0, "only records finished within this duration")
	flags.StringVar(&f.runID, "run-id", "", "filter by run ID")
	flags.StringVar(&f.language, "language", "", "filter by embedded language")
	flags.StringVar(&f.outcome, "outcome", "", "filter by outcome: accepted, failed")
	flags.StringVar(&f.stage, "stage", "", "filter by failed stage")
	flags.Float64Var(&f.minScore, "min-score", 0, "minimum aggregate score")
	flags.Float64Var(&f.maxScore, "max-score", 0, "maximum aggregate score")
	flags.IntVar(&f.limit, "limit", 0, "maximum records")
	flags.IntVar(&f.offset, "offset", 0, "records to skip")
	flags.StringVar(&f.sortBy, "sort-by", "", "sort field: finished_at, started_at, recorded_at, score, refine_count, scenario_id")
	flags.StringVar(&f.sortOrder, "sort-order", "", "sort order: asc, desc")
}

// buildQuery turns filter flags into a validated query.
func (f *auditFilter) buildQuery(cmd *cobra.Command, now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		RunID:       f.runID,
		Language:    f.language,
		Outcome:     evidence.Outcome(f.outcome),
		FailedStage: f.stage,
		Limit:       f.limit,
		Offset:      f.offset,
		SortBy:      f.sortBy,
		SortOrder:   f.sortOrder,
	}

	if f.timeRange != "" && f.since > 0 {
		return nil, cli.NewConfigError("--time-range", "cannot be combined with --since")
	}
	if f.timeRange != "" {
		start, end, err := parseTimeRange(f.timeRange)
		if err != nil {
			return nil, cli.NewConfigError("--time-range", err.Error())
		}
		q.StartTime, q.EndTime = &start, &end
	}
	if f.since > 0 {
		start := now.Add(-f.since)
		q.StartTime = &start
	}

	if cmd.Flags().Changed("min-score") {
		v := f.minScore
		q.MinScore = &v
	}
	if cmd.Flags().Changed("max-score") {
		v := f.maxScore
		q.MaxScore = &v
	}

	if err := query.Validate(q); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	query.ApplyDefaults(q)
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected start/end, got %q", s)
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

// openAuditStore loads the configuration and opens the evidence store.
func openAuditStore() (*config.Config, evidence.Storage, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openEvidence(cfg)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}
	return cfg, store, func() {
		_ = store.Close()
		a.close()
	}, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditQueryFlags.format)
	if err != nil {
		return err
	}
	q, err := auditQueryFilter.buildQuery(cmd, time.Now())
	if err != nil {
		return err
	}

	_, store, closeStore, err := openAuditStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.WriteJSON(out, records)
	}

	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	styles := cli.NewStyles(out)
	fmt.Fprintln(out, styles.RenderRecords(records))
	fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("%d of %d matching records", len(records), total)))
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	var exporter evidence.Exporter
	switch strings.ToLower(auditExportFlags.format) {
	case "json":
		exporter = export.NewJSONExporter(auditExportFlags.pretty)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return cli.NewConfigError("--format", fmt.Sprintf("unsupported export format %q (valid: json, csv)", auditExportFlags.format))
	}

	if !cmd.Flags().Changed("limit") {
		auditExportFilter.limit = query.MaxLimit
	}
	q, err := auditExportFilter.buildQuery(cmd, time.Now())
	if err != nil {
		return err
	}

	_, store, closeStore, err := openAuditStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var w io.Writer = cmd.OutOrStdout()
	if auditExportFlags.output != "" {
		f, err := os.Create(auditExportFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		w = f
	}

	ctx := cmd.Context()
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if auditExportFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", auditExportFlags.output)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, store, closeStore, err := openAuditStore()
	if err != nil {
		return err
	}
	defer closeStore()

	rc := retention.ConfigFrom(cfg.Evidence.Retention)
	flags := cmd.Flags()
	if flags.Changed("days") {
		rc.RetentionDays = auditPruneFlags.days
	}
	if flags.Changed("max-records") {
		rc.MaxRecords = auditPruneFlags.maxRecords
	}
	if flags.Changed("archive-dir") {
		rc.ArchiveDir = auditPruneFlags.archiveDir
	}
	if rc.RetentionDays < 0 || rc.MaxRecords < 0 {
		return cli.NewConfigError("retention", "days and max records must be non-negative")
	}

	out := cmd.OutOrStdout()
	if !rc.Enabled() {
		fmt.Fprintln(out, "No retention policy configured, nothing to prune")
		return nil
	}

	deleted, err := retention.NewPruner(store, rc).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(out, "✓ Pruned %d records\n", deleted)
	if rc.ArchiveDir != "" && deleted > 0 {
		fmt.Fprintf(out, "✓ Archived to %s\n", rc.ArchiveDir)
	}
	return nil
}
