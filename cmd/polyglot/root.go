package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "polyglot",
	Short: "Polyglot - code-switched sentence generation",
	Long: `Polyglot builds code-switched NLI test sets from XNLI hypotheses.

Each hypothesis runs through a small agent workflow:
  - a translator writes a code-switched sentence in the configured language pair
  - evaluators score accuracy, fluency and naturalness (plus optional plugins)
  - low scoring translations are refined a bounded number of times
  - accepted translations are merged into <output_dir>/cs_<lang>_test.tsv

Batches run with a concurrency cap and a global deadline. Every finished
scenario is recorded in a queryable evidence store.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code mapped from its
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
