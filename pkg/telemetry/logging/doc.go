// Package logging provides structured logging for Polyglot on top of log/slog.
//
// The Logger installs a handler that copies run and scenario fields from the
// context onto each record, so workflow code can log with the standard slog
// API and still produce records that can be grouped per scenario:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithScenarioID(ctx, 1203)
//	logger.InfoContext(ctx, "scenario accepted", "score", 8.6)
//
// Formats: "json" for machine ingestion, "text" (logfmt) and "console"
// (text without timestamps) for terminals.
package logging
