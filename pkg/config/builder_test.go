package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with a valid configuration.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		PreExecute: PreExecuteConfig{SecondLanguage: "Vietnamese"},
		Provider:   ProviderConfig{Model: "gpt-4o-mini", APIKey: "test-key"},
	}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithSecondLanguage sets the embedded language.
func (b *ConfigBuilder) WithSecondLanguage(lang string) *ConfigBuilder {
	b.cfg.PreExecute.SecondLanguage = lang
	return b
}

// WithEvaluators replaces the evaluator panel.
func (b *ConfigBuilder) WithEvaluators(evaluators ...EvaluatorConfig) *ConfigBuilder {
	b.cfg.Workflow.Evaluators = evaluators
	return b
}

// WithMaxRefine sets the refinement cap.
func (b *ConfigBuilder) WithMaxRefine(n int) *ConfigBuilder {
	b.cfg.Workflow.MaxRefine = &n
	return b
}

// WithWindow sets the scheduler window.
func (b *ConfigBuilder) WithWindow(start, end int) *ConfigBuilder {
	b.cfg.Scheduler.Start = start
	b.cfg.Scheduler.End = end
	return b
}

// WithSchedulerTimeout sets the batch deadline.
func (b *ConfigBuilder) WithSchedulerTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Scheduler.Timeout = d
	return b
}
