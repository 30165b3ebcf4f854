package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for batch run identifiers.
	RunIDKey contextKey = "run_id"

	// ScenarioIDKey is the context key for scenario indexes.
	ScenarioIDKey contextKey = "scenario_id"

	// LanguageKey is the context key for the embedded language of a run.
	LanguageKey contextKey = "language"

	// StageKey is the context key for the workflow stage.
	StageKey contextKey = "stage"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithScenarioID adds a scenario index to the context.
func WithScenarioID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, ScenarioIDKey, id)
}

// GetScenarioID retrieves the scenario index from the context.
// The second result is false when no scenario is set.
func GetScenarioID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(ScenarioIDKey).(int)
	return id, ok
}

// WithLanguage adds the embedded language to the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, LanguageKey, lang)
}

// GetLanguage retrieves the embedded language from the context.
func GetLanguage(ctx context.Context) string {
	if lang, ok := ctx.Value(LanguageKey).(string); ok {
		return lang
	}
	return ""
}

// WithStage adds the workflow stage to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// GetStage retrieves the workflow stage from the context.
func GetStage(ctx context.Context) string {
	if stage, ok := ctx.Value(StageKey).(string); ok {
		return stage
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, slog.String(string(RunIDKey), runID))
	}
	if id, ok := GetScenarioID(ctx); ok {
		fields = append(fields, slog.Int(string(ScenarioIDKey), id))
	}
	if lang := GetLanguage(ctx); lang != "" {
		fields = append(fields, slog.String(string(LanguageKey), lang))
	}
	if stage := GetStage(ctx); stage != "" {
		fields = append(fields, slog.String(string(StageKey), stage))
	}

	return fields
}
