package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/dataset"
)

var rebuildFlags struct {
	fresh  bool
	format string
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate the TSV dataset from the audit log",
	Long: `Replay <output_dir>/<lang>.jsonl into <output_dir>/cs_<lang>_test.tsv.

Every audit record is resolved to its (premise, label) key through the
source dataset and upserted; later records win. Rows already in the TSV are
kept and updated in place unless --fresh is given. Running rebuild twice
produces the same file.

Examples:
  # Update the existing table
  polyglot rebuild

  # Regenerate the table from scratch
  polyglot rebuild --fresh`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().BoolVar(&rebuildFlags.fresh, "fresh", false, "start from an empty table")
	rebuildCmd.Flags().StringVar(&rebuildFlags.format, "format", "text", "output format: text, json")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rebuildFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	src, err := dataset.LoadXNLI(cfg.Dataset.SourcePath, cfg.Dataset.SourceLanguage, a.logger)
	if err != nil {
		return cli.NewCommandError("rebuild", err)
	}
	merger, err := a.newMerger(src)
	if err != nil {
		return cli.NewCommandError("rebuild", err)
	}

	stats, err := merger.Rebuild(ctx, rebuildFlags.fresh)
	if err != nil {
		return cli.NewCommandError("rebuild", err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.WriteJSON(out, struct {
			Path  string               `json:"path"`
			Fresh bool                 `json:"fresh"`
			Stats dataset.RebuildStats `json:"stats"`
		}{merger.TablePath(), rebuildFlags.fresh, stats})
	}
	fmt.Fprintln(out, cli.NewStyles(out).RenderRebuild(merger.TablePath(), stats))
	return nil
}
