package agent

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/polyglot/pkg/telemetry/metrics"
)

// DefaultGenerationAttempts is the attempt budget for an empty generation.
const DefaultGenerationAttempts = 4

// Retrying wraps an Agent so translate and refine calls that come back
// empty are repeated, up to a fixed number of attempts. Hard failures are
// returned unchanged on the first occurrence. Evaluations pass through.
type Retrying struct {
	Agent

	attempts int
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewRetrying wraps next. attempts below 1 is treated as 1.
func NewRetrying(next Agent, attempts int, collector *metrics.Collector, logger *slog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		Agent:    next,
		attempts: attempts,
		metrics:  collector,
		logger:   logger.With("component", "agent"),
	}
}

// Attempts returns the attempt budget.
func (r *Retrying) Attempts() int {
	return r.attempts
}

// Generate implements Agent.
func (r *Retrying) Generate(ctx context.Context, role Role, in Input) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.Agent.Generate(ctx, role, in)
		if err == nil {
			return out, nil
		}

		var empty *EmptyResponseError
		if !errors.As(err, &empty) {
			return "", err
		}
		lastErr = err

		if attempt < r.attempts {
			r.metrics.RecordGenerationRetry(string(role))
			r.logger.WarnContext(ctx, "empty generation, retrying",
				"role", role,
				"attempt", attempt,
				"max_attempts", r.attempts,
			)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
