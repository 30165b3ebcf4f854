package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/prompts"
	"mercator-hq/polyglot/pkg/scoring"
)

var validateFlags struct {
	source bool
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration",
	Long: `Check a configuration without contacting the provider.

The validate command loads the configuration with environment overrides and
checks:
  - field values and the evaluator weights
  - the scoring policy built from the workflow section
  - prompt template overrides, which must parse
  - the recurring schedule cron expression
  - the source dataset, when --source is given

Examples:
  # Validate config.yaml
  polyglot validate

  # Also parse the XNLI source file
  polyglot validate --config prod.yaml --source`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.source, "source", false, "also load the source dataset")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validationCheck is the outcome of one validate step.
type validationCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := validateConfig(cfg, validateFlags.source, slog.Default())

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if err := cli.WriteJSON(out, checks); err != nil {
			return err
		}
	} else {
		styles := cli.NewStyles(out)
		fmt.Fprintln(out, styles.Title.Render("Configuration "+cfgFile))
		for _, c := range checks {
			mark := styles.OK.Render("✓")
			if !c.OK {
				mark = styles.Fail.Render("✗")
			}
			fmt.Fprintf(out, "%s %s %s\n", mark, styles.Label.Render(c.Name), c.Detail)
		}
	}

	for _, c := range checks {
		if !c.OK {
			return cli.NewConfigError(c.Name, c.Detail)
		}
	}
	return nil
}

// validateConfig runs every check on an already field-validated config.
func validateConfig(cfg *config.Config, loadSource bool, logger *slog.Logger) []validationCheck {
	checks := []validationCheck{{
		Name:   "config",
		OK:     true,
		Detail: fmt.Sprintf("%s / %s, ratio %s", cfg.PreExecute.FirstLanguage, cfg.PreExecute.SecondLanguage, cfg.PreExecute.CSRatio),
	}}

	if policy, err := scoring.FromConfig(cfg.Workflow); err != nil {
		checks = append(checks, validationCheck{Name: "scoring", Detail: err.Error()})
	} else {
		names := policy.Evaluators()
		weights := make([]string, len(names))
		for i, name := range names {
			weights[i] = fmt.Sprintf("%s=%.2f", name, weightOf(cfg.Workflow.Evaluators, name))
		}
		checks = append(checks, validationCheck{
			Name:   "scoring",
			OK:     true,
			Detail: fmt.Sprintf("%s, accept >= %.1f, refine <= %d", strings.Join(weights, " "), policy.Threshold(), policy.MaxRefine()),
		})
	}

	if store, err := prompts.NewStore(cfg.Prompts.Dir, logger); err != nil {
		checks = append(checks, validationCheck{Name: "prompts", Detail: err.Error()})
	} else {
		checks = append(checks, validationCheck{Name: "prompts", OK: true, Detail: "revision " + store.Revision()})
	}

	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		checks = append(checks, validationCheck{Name: "schedule", Detail: err.Error()})
	} else {
		checks = append(checks, validationCheck{
			Name:   "schedule",
			OK:     true,
			Detail: fmt.Sprintf("%q, %d per window", cfg.Schedule.Cron, cfg.Schedule.WindowSize),
		})
	}

	checks = append(checks, validationCheck{
		Name:   "scheduler",
		OK:     true,
		Detail: fmt.Sprintf("window [%d, %s), concurrency %d, timeout %s", cfg.Scheduler.Start, windowEnd(cfg.Scheduler.End), cfg.Scheduler.MaxConcurrency, cfg.Scheduler.Timeout),
	})

	if loadSource {
		src, err := dataset.LoadXNLI(cfg.Dataset.SourcePath, cfg.Dataset.SourceLanguage, logger)
		if err != nil {
			checks = append(checks, validationCheck{Name: "source", Detail: err.Error()})
		} else {
			checks = append(checks, validationCheck{
				Name:   "source",
				OK:     true,
				Detail: fmt.Sprintf("%s: %d %s hypotheses", cfg.Dataset.SourcePath, len(src.Hypotheses()), cfg.Dataset.SourceLanguage),
			})
		}
	}

	return checks
}

func weightOf(evaluators []config.EvaluatorConfig, name string) float64 {
	for _, e := range evaluators {
		if e.Name == name {
			return e.Weight
		}
	}
	return 0
}

func windowEnd(end int) string {
	if end <= 0 {
		return "end"
	}
	return fmt.Sprint(end)
}
