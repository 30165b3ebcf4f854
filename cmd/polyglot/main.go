// Polyglot generates code-switched NLI test sets with a panel of LLM agents.
//
// Every hypothesis of an XNLI test split becomes a scenario: a translator
// agent writes a code-switched version, evaluator agents score it, weak
// translations are refined, and accepted ones are merged into a TSV dataset
// keyed by (premise, label).
//
// Usage:
//
//	# Run the configured window once
//	polyglot run --config config.yaml
//
//	# Run consecutive windows on a cron schedule
//	polyglot schedule
//
//	# Regenerate the TSV from the audit log
//	polyglot rebuild
//
//	# Inspect finished scenarios
//	polyglot audit query --outcome failed --stage evaluating
//	polyglot audit export --format csv --output scenarios.csv
//
//	# Check a configuration without running anything
//	polyglot validate
package main

func main() {
	Execute()
}
