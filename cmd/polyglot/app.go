package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"mercator-hq/polyglot/pkg/agent"
	"mercator-hq/polyglot/pkg/cli"
	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/recorder"
	"mercator-hq/polyglot/pkg/evidence/retention"
	"mercator-hq/polyglot/pkg/evidence/storage"
	"mercator-hq/polyglot/pkg/prompts"
	"mercator-hq/polyglot/pkg/providerfactory"
	"mercator-hq/polyglot/pkg/providers"
	"mercator-hq/polyglot/pkg/scheduler"
	"mercator-hq/polyglot/pkg/telemetry"
	"mercator-hq/polyglot/pkg/workflow"
)

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// loadConfig initializes the process configuration from --config.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		var validationErr config.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError(cfgFile, "configuration not initialized")
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// app holds what every command that touches the pipeline needs.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	tel, err := telemetry.New(&cfg.Telemetry, os.Stderr, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	tel.Logger.SetDefault()

	return &app{
		cfg:       cfg,
		telemetry: tel,
		logger:    tel.Logger.Slog(),
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
	}
}

// serveMetrics exposes the metrics endpoint until ctx is cancelled.
func (a *app) serveMetrics(ctx context.Context) {
	m := a.cfg.Telemetry.Metrics
	if m.ListenAddress == "" || !m.IsEnabled() {
		return
	}
	go func() {
		if err := a.telemetry.Metrics.Serve(ctx, m.ListenAddress, m.Path); err != nil {
			a.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
}

// openEvidence opens the configured evidence backend.
func openEvidence(cfg *config.Config) (evidence.Storage, error) {
	switch cfg.Evidence.Backend {
	case "", "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfigFrom(cfg.Evidence.SQLite))
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, cli.NewConfigError("evidence.backend", fmt.Sprintf("unsupported backend %q", cfg.Evidence.Backend))
	}
}

// loadSource reads the XNLI split and the ordered hypothesis list.
func (a *app) loadSource() (*dataset.Source, []string, error) {
	src, err := dataset.LoadXNLI(a.cfg.Dataset.SourcePath, a.cfg.Dataset.SourceLanguage, a.logger)
	if err != nil {
		return nil, nil, err
	}
	hypotheses, err := dataset.LoadHypotheses(a.cfg.Dataset.HypothesesCache, src, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return src, hypotheses, nil
}

func (a *app) newMerger(src *dataset.Source) (*dataset.Merger, error) {
	return dataset.NewMerger(a.cfg.Dataset.OutputDir, a.cfg.PreExecute.SecondLanguage, src,
		dataset.WithMergeMetrics(a.telemetry.Metrics),
		dataset.WithMergeTracer(a.telemetry.Tracer),
		dataset.WithMergeLogger(a.logger),
	)
}

// pipeline is a fully wired batch: agents, workflow machine, merge layer,
// evidence recorder and scheduler.
type pipeline struct {
	settings   workflow.Settings
	hypotheses []string
	merger     *dataset.Merger
	scheduler  *scheduler.Scheduler

	provider providers.Provider
	store    evidence.Storage
	recorder *recorder.Recorder
	pruner   *retention.Pruner
	progress cli.ProgressReporter
	logger   *slog.Logger
}

// buildPipeline wires a batch from configuration. Prompt overrides are
// watched for the lifetime of ctx when prompts.watch is set.
func (a *app) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg := a.cfg
	tel := a.telemetry

	promptStore, err := prompts.NewStore(cfg.Prompts.Dir, a.logger)
	if err != nil {
		return nil, cli.NewConfigError("prompts.dir", err.Error())
	}
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		watcher, err := prompts.NewWatcher(promptStore, prompts.DefaultDebounceInterval)
		if err != nil {
			return nil, err
		}
		go func() {
			err := watcher.Watch(ctx, func(err error) {
				if err != nil {
					a.logger.Warn("prompt reload failed, keeping previous templates", "error", err)
					return
				}
				a.logger.Info("prompt templates reloaded", "revision", promptStore.Revision())
			})
			if err != nil {
				a.logger.Error("prompt watcher stopped", "error", err)
			}
		}()
	}

	src, hypotheses, err := a.loadSource()
	if err != nil {
		return nil, err
	}
	merger, err := a.newMerger(src)
	if err != nil {
		return nil, err
	}

	provider, err := providerfactory.NewProvider(providers.ConfigFrom(cfg.Provider, cfg.Scheduler.MaxConcurrency))
	if err != nil {
		return nil, cli.NewConfigError("provider", err.Error())
	}

	llm := agent.NewLLMAgent(provider, promptStore,
		agent.LLMConfig{Model: cfg.Provider.Model, Temperature: cfg.Provider.TemperatureValue()},
		agent.WithMetrics(tel.Metrics),
		agent.WithTracer(tel.Tracer),
		agent.WithLogger(a.logger),
	)
	retrying := agent.NewRetrying(llm, cfg.Workflow.GenerationAttempts, tel.Metrics, a.logger)

	settings, err := workflow.SettingsFrom(cfg, uuid.NewString())
	if err != nil {
		_ = provider.Close()
		return nil, cli.NewConfigError("workflow", err.Error())
	}
	settings.PromptRevision = promptStore.Revision

	machine := workflow.NewMachine(retrying, settings, merger,
		workflow.WithMetrics(tel.Metrics),
		workflow.WithTracer(tel.Tracer),
		workflow.WithLogger(a.logger),
	)

	p := &pipeline{
		settings:   settings,
		hypotheses: hypotheses,
		merger:     merger,
		provider:   provider,
		logger:     a.logger,
	}

	if cfg.Evidence.IsEnabled() {
		store, err := openEvidence(cfg)
		if err != nil {
			_ = provider.Close()
			return nil, err
		}
		p.store = store
		p.recorder = recorder.NewRecorder(store, recorder.ConfigFrom(cfg.Evidence), recorder.WithLogger(a.logger))
		p.pruner = retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention), retention.WithLogger(a.logger))
	}

	p.scheduler = scheduler.New(machine, settings,
		scheduler.Config{
			MaxConcurrency: cfg.Scheduler.MaxConcurrency,
			Timeout:        cfg.Scheduler.Timeout,
		},
		scheduler.WithMetrics(tel.Metrics),
		scheduler.WithTracer(tel.Tracer),
		scheduler.WithLogger(a.logger),
		scheduler.OnResult(p.onResult),
	)

	a.logger.Info("pipeline ready",
		"run_id", settings.RunID,
		"language", settings.SecondLanguage,
		"hypotheses", len(hypotheses),
		"evaluators", settings.Policy.Evaluators(),
		"prompt_revision", settings.Revision(),
	)
	return p, nil
}

// onResult receives every counted result from the scheduler.
func (p *pipeline) onResult(res workflow.Result) {
	if p.progress != nil {
		p.progress.Increment(!res.Accepted())
	}
	if p.recorder != nil {
		if err := p.recorder.Record(context.Background(), p.settings, res); err != nil {
			p.logger.Warn("scenario record dropped", "scenario_id", res.Scenario.ID, "error", err)
		}
	}
}

// flush drains pending evidence records and applies retention.
func (p *pipeline) flush(ctx context.Context) {
	if p.recorder == nil {
		return
	}
	_ = p.recorder.Close()
	p.prune(ctx)
}

func (p *pipeline) prune(ctx context.Context) {
	if p.pruner == nil {
		return
	}
	if _, err := p.pruner.Prune(ctx); err != nil {
		p.logger.Error("evidence retention failed", "error", err)
	}
}

// Close releases the provider and the evidence store.
func (p *pipeline) Close() error {
	var errs []error
	if p.recorder != nil {
		errs = append(errs, p.recorder.Close())
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	errs = append(errs, p.provider.Close())
	return errors.Join(errs...)
}

// batchError maps an interrupted report to the error a command returns.
func batchError(report scheduler.Report) error {
	switch {
	case report.Cancelled:
		return context.Canceled
	case report.TimedOut:
		return cli.ErrBatchTimedOut
	default:
		return nil
	}
}
