package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/telemetry/logging"
	"mercator-hq/polyglot/pkg/telemetry/metrics"
	"mercator-hq/polyglot/pkg/telemetry/tracing"
)

// Telemetry bundles the logger, metrics collector and tracer of a process.
type Telemetry struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// New builds every telemetry layer. The logger writes to w.
func New(cfg *config.TelemetryConfig, w io.Writer, version string) (*Telemetry, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		File:      cfg.Logging.File,
		Writer:    w,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, version)
	if err != nil {
		_ = logger.Shutdown()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(&cfg.Metrics, nil),
		Tracer:  tracer,
	}, nil
}

// Shutdown flushes spans and closes the log file.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.Tracer.Shutdown(ctx), t.Logger.Shutdown())
}
