package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/scheduler"
)

var scheduleFlags struct {
	cron       string
	windowSize int
	once       bool
	reset      bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run consecutive windows on a cron schedule",
	Long: `Run windows of schedule.window_size hypotheses on a cron schedule.

The next window start is persisted in schedule.cursor_path, keyed by the
embedded language, so a restarted schedule resumes where it stopped. A tick
interrupted by shutdown is repeated on the next run; a tick that hits the
batch deadline still advances the cursor. The command exits once every
hypothesis has been processed.

Examples:
  # Use the configured schedule
  polyglot schedule

  # Run a window every 15 minutes
  polyglot schedule --cron "*/15 * * * *" --window-size 20

  # Run the next window now and exit
  polyglot schedule --once

  # Start over from the first hypothesis
  polyglot schedule --reset`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "five-field cron expression (overrides schedule.cron)")
	scheduleCmd.Flags().IntVar(&scheduleFlags.windowSize, "window-size", 0, "hypotheses per tick (overrides schedule.window_size)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.once, "once", false, "run the next window immediately and exit")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.reset, "reset", false, "reset the cursor to the first hypothesis before starting")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scheduleFlags.cron != "" {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if cmd.Flags().Changed("window-size") {
		if scheduleFlags.windowSize < 1 {
			return cli.NewConfigError("--window-size", "must be at least 1")
		}
		cfg.Schedule.WindowSize = scheduleFlags.windowSize
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
		return cli.NewCommandError("schedule", err)
	}
	defer p.Close()

	cursor, err := scheduler.OpenCursor(cfg.Schedule.CursorPath, cfg.Evidence.SQLite.BusyTimeout)
	if err != nil {
		return cli.NewCommandError("schedule", err)
	}
	defer cursor.Close()

	key := cfg.PreExecute.SecondLanguage
	if scheduleFlags.reset {
		if err := cursor.Reset(ctx, key); err != nil {
			return cli.NewCommandError("schedule", err)
		}
		a.logger.Info("cursor reset", "cursor", key)
	}

	recurring := scheduler.NewRecurring(p.scheduler, cursor, key, p.hypotheses, cfg.Schedule.WindowSize)
	out := cmd.OutOrStdout()
	styles := cli.NewStyles(out)

	if scheduleFlags.once {
		report, exhausted, err := recurring.Tick(ctx)
		if err != nil {
			return cli.NewCommandError("schedule", err)
		}
		p.flush(context.Background())
		if exhausted && report.Window.Len() == 0 {
			fmt.Fprintln(out, "✓ Batch already exhausted")
			return nil
		}
		fmt.Fprintln(out, styles.RenderReport(report))
		return batchError(report)
	}

	recurring.AfterTick(func(report scheduler.Report) {
		fmt.Fprintln(out, styles.RenderReport(report))
		p.prune(context.Background())
	})

	if err := recurring.Start(ctx, cfg.Schedule.Cron); err != nil {
		return cli.NewConfigError("schedule.cron", err.Error())
	}
	fmt.Fprintf(out, "✓ Scheduled %d-hypothesis windows on %q for %s\n", cfg.Schedule.WindowSize, cfg.Schedule.Cron, key)
	if next := recurring.NextRun(); next != nil {
		fmt.Fprintf(out, "✓ Next window at %s\n", next.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
		recurring.Stop()
		fmt.Fprintln(out, "\n✓ Schedule stopped")
	case <-recurring.Done():
		recurring.Stop()
		fmt.Fprintln(out, "✓ Batch exhausted")
	}

	p.flush(context.Background())
	return nil
}
