package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/scheduler"
)

var runFlags struct {
	start       int
	end         int
	concurrency int
	timeout     time.Duration
	format      string
	noProgress  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch window",
	Long: `Run one scenario per hypothesis in the configured window.

The window, concurrency cap and global deadline come from the scheduler
section of the configuration and can be overridden with flags. Scenarios
still running at the deadline are abandoned: they are cancelled, not merged
and not counted.

Exit codes:
  0    every scenario finished
  2    invalid configuration
  3    the batch deadline passed
  130  interrupted

Examples:
  # Run the configured window
  polyglot run

  # Run hypotheses 100 to 140 with 4 workers
  polyglot run --start 100 --end 140 --concurrency 4

  # Print the report as JSON
  polyglot run --format json --no-progress`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runFlags.start, "start", 0, "first hypothesis index (overrides scheduler.start)")
	runCmd.Flags().IntVar(&runFlags.end, "end", 0, "last hypothesis index, exclusive; 0 means end of batch (overrides scheduler.end)")
	runCmd.Flags().IntVar(&runFlags.concurrency, "concurrency", 0, "maximum in-flight scenarios (overrides scheduler.max_concurrency)")
	runCmd.Flags().DurationVar(&runFlags.timeout, "timeout", 0, "batch deadline (overrides scheduler.timeout)")
	runCmd.Flags().StringVar(&runFlags.format, "format", "text", "report format: text, json")
	runCmd.Flags().BoolVar(&runFlags.noProgress, "no-progress", false, "disable the progress bar")
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		cfg.Scheduler.Start = runFlags.start
	}
	if flags.Changed("end") {
		cfg.Scheduler.End = runFlags.end
	}
	if flags.Changed("concurrency") {
		if runFlags.concurrency < 1 {
			return cli.NewConfigError("--concurrency", "must be at least 1")
		}
		cfg.Scheduler.MaxConcurrency = runFlags.concurrency
	}
	if flags.Changed("timeout") {
		if runFlags.timeout <= 0 {
			return cli.NewConfigError("--timeout", "must be positive")
		}
		cfg.Scheduler.Timeout = runFlags.timeout
	}
	if cfg.Scheduler.Start < 0 || (cfg.Scheduler.End > 0 && cfg.Scheduler.End < cfg.Scheduler.Start) {
		return cli.NewConfigError("scheduler", fmt.Sprintf("invalid window [%d, %d)", cfg.Scheduler.Start, cfg.Scheduler.End))
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a.serveMetrics(ctx)

	p, err := a.buildPipeline(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer p.Close()

	window := scheduler.Window{Start: cfg.Scheduler.Start, End: cfg.Scheduler.End}.Clamp(len(p.hypotheses))

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintf(out, "Polyglot v%s\n", Version)
		fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)
		fmt.Fprintf(out, "✓ %d hypotheses loaded, running [%d, %d)\n", len(p.hypotheses), window.Start, window.End)
	}

	if !runFlags.noProgress {
		p.progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		p.progress.Start(int64(window.Len()))
	}

	report := p.scheduler.Run(ctx, p.hypotheses, window)

	if p.progress != nil {
		p.progress.Finish()
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Evidence.Recorder.WriteTimeout+shutdownTimeout)
	defer flushCancel()
	p.flush(flushCtx)

	switch format {
	case cli.FormatJSON:
		if err := cli.WriteJSON(out, report); err != nil {
			return err
		}
	default:
		fmt.Fprintln(out, cli.NewStyles(out).RenderReport(report))
		fmt.Fprintf(out, "✓ Dataset: %s\n", p.merger.TablePath())
	}

	return batchError(report)
}
