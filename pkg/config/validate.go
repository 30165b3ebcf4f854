package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// KnownEvaluators lists the evaluator names accepted in workflow.evaluators.
var KnownEvaluators = []string{"accuracy", "fluency", "naturalness", "cs_ratio", "socio_cultural"}

// weightTolerance absorbs float rounding in YAML weights like 0.3/0.4/0.3.
const weightTolerance = 1e-6

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "provider.model").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePreExecute(&cfg.PreExecute)...)
	errs = append(errs, validateProvider(&cfg.Provider)...)
	errs = append(errs, validateWorkflow(&cfg.Workflow)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateDataset(&cfg.Dataset)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validatePreExecute(cfg *PreExecuteConfig) []FieldError {
	var errs []FieldError

	if cfg.FirstLanguage == "" {
		errs = append(errs, FieldError{
			Field:   "pre_execute.first_language",
			Message: "first language is required",
		})
	}
	if cfg.SecondLanguage == "" {
		errs = append(errs, FieldError{
			Field:   "pre_execute.second_language",
			Message: "second language is required",
		})
	}
	if strings.ContainsAny(cfg.SecondLanguage, `/\`) {
		errs = append(errs, FieldError{
			Field:   "pre_execute.second_language",
			Message: "second language names output files and must not contain path separators",
		})
	}

	return errs
}

func validateProvider(cfg *ProviderConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: fmt.Sprintf("invalid URL %q", cfg.BaseURL),
		})
	}

	if cfg.Model == "" {
		errs = append(errs, FieldError{
			Field:   "provider.model",
			Message: "model is required",
		})
	}

	if t := cfg.TemperatureValue(); t < 0 || t > 2 {
		errs = append(errs, FieldError{
			Field:   "provider.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.timeout",
			Message: "timeout must be positive",
		})
	}

	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "provider.max_retries",
			Message: "max retries must be non-negative",
		})
	}

	return errs
}

func validateWorkflow(cfg *WorkflowConfig) []FieldError {
	var errs []FieldError

	if cfg.AcceptThreshold < 0 || cfg.AcceptThreshold > 10 {
		errs = append(errs, FieldError{
			Field:   "workflow.accept_threshold",
			Message: "accept threshold must be between 0 and 10",
		})
	}

	if cfg.RefineLimit() < 0 {
		errs = append(errs, FieldError{
			Field:   "workflow.max_refine",
			Message: "max refine must be non-negative",
		})
	}

	if cfg.GenerationAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "workflow.generation_attempts",
			Message: "generation attempts must be at least 1",
		})
	}

	errs = append(errs, validateEvaluators(cfg.Evaluators)...)

	return errs
}

func validateEvaluators(evaluators []EvaluatorConfig) []FieldError {
	var errs []FieldError

	if len(evaluators) == 0 {
		return []FieldError{{
			Field:   "workflow.evaluators",
			Message: "at least one evaluator is required",
		}}
	}

	seen := make(map[string]bool, len(evaluators))
	var sum float64
	for i, ev := range evaluators {
		field := fmt.Sprintf("workflow.evaluators[%d]", i)

		if !isKnownEvaluator(ev.Name) {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: fmt.Sprintf("unknown evaluator %q (valid: %s)", ev.Name, strings.Join(KnownEvaluators, ", ")),
			})
		}
		if seen[ev.Name] {
			errs = append(errs, FieldError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate evaluator %q", ev.Name),
			})
		}
		seen[ev.Name] = true

		if ev.Weight < 0 {
			errs = append(errs, FieldError{
				Field:   field + ".weight",
				Message: "weight must be non-negative",
			})
		}
		sum += ev.Weight
	}

	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, FieldError{
			Field:   "workflow.evaluators",
			Message: fmt.Sprintf("weights must sum to 1, got %g", sum),
		})
	}

	return errs
}

func isKnownEvaluator(name string) bool {
	for _, known := range KnownEvaluators {
		if name == known {
			return true
		}
	}
	return false
}

func validateScheduler(cfg *SchedulerConfig) []FieldError {
	var errs []FieldError

	if cfg.Start < 0 {
		errs = append(errs, FieldError{
			Field:   "scheduler.start",
			Message: "start must be non-negative",
		})
	}
	if cfg.End < 0 {
		errs = append(errs, FieldError{
			Field:   "scheduler.end",
			Message: "end must be non-negative",
		})
	}
	if cfg.End > 0 && cfg.End < cfg.Start {
		errs = append(errs, FieldError{
			Field:   "scheduler.end",
			Message: "end must not be before start",
		})
	}
	if cfg.MaxConcurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "scheduler.max_concurrency",
			Message: "max concurrency must be at least 1",
		})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "scheduler.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

func validateDataset(cfg *DatasetConfig) []FieldError {
	var errs []FieldError

	if cfg.SourcePath == "" {
		errs = append(errs, FieldError{
			Field:   "dataset.source_path",
			Message: "source path is required",
		})
	}
	if cfg.OutputDir == "" {
		errs = append(errs, FieldError{
			Field:   "dataset.output_dir",
			Message: "output directory is required",
		})
	}

	return errs
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !cfg.IsEnabled() {
		return nil
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "evidence.sqlite.path",
				Message: "SQLite path is required",
			})
		}
		switch strings.ToUpper(cfg.SQLite.JournalMode) {
		case "WAL", "DELETE", "TRUNCATE", "MEMORY":
		default:
			errs = append(errs, FieldError{
				Field:   "evidence.sqlite.journal_mode",
				Message: fmt.Sprintf("unsupported journal mode %q", cfg.SQLite.JournalMode),
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("unsupported backend %q (valid: sqlite, memory)", cfg.Backend),
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "evidence.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "evidence.retention.max_records",
			Message: "max records must be non-negative",
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "evidence.recorder.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}

	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.WindowSize < 1 {
		errs = append(errs, FieldError{
			Field:   "schedule.window_size",
			Message: "window size must be at least 1",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text, console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0 and 1",
			})
		}
		if cfg.Tracing.Exporter != "otlp" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("unsupported exporter %q (valid: otlp)", cfg.Tracing.Exporter),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}
