package workflow

import (
	"fmt"

	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/scoring"
)

// Settings is the immutable configuration of a run. It is built once and
// handed to the scheduler and every machine; workflow code reads nothing
// else.
type Settings struct {
	RunID string

	FirstLanguage  string
	SecondLanguage string
	CSRatio        string

	// Policy holds the evaluator set, weights, threshold and refine cap.
	Policy *scoring.Policy

	// PromptRevision labels audit records with the prompt set in effect.
	// Nil records no revision.
	PromptRevision func() string
}

// SettingsFrom builds run settings from configuration.
func SettingsFrom(cfg *config.Config, runID string) (Settings, error) {
	policy, err := scoring.FromConfig(cfg.Workflow)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid scoring policy: %w", err)
	}
	return Settings{
		RunID:          runID,
		FirstLanguage:  cfg.PreExecute.FirstLanguage,
		SecondLanguage: cfg.PreExecute.SecondLanguage,
		CSRatio:        cfg.PreExecute.CSRatio,
		Policy:         policy,
	}, nil
}

// Revision returns the prompt revision in effect, or "" when none is tracked.
func (s Settings) Revision() string {
	if s.PromptRevision == nil {
		return ""
	}
	return s.PromptRevision()
}
