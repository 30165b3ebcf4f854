package config

import "time"

// Default values for configuration fields.
const (
	// Pre-execute defaults
	DefaultFirstLanguage = "English"
	DefaultCSRatio       = "7:3"

	// Provider defaults
	DefaultProviderName         = "openai"
	DefaultProviderBaseURL      = "https://api.openai.com/v1"
	DefaultProviderTemperature  = 1.0
	DefaultProviderTimeout      = 60 * time.Second
	DefaultProviderMaxRetries   = 3
	DefaultProviderRetryBackoff = 1 * time.Second

	// Workflow defaults
	DefaultAcceptThreshold    = 8.0
	DefaultMaxRefine          = 1
	DefaultGenerationAttempts = 4

	// Scheduler defaults
	DefaultSchedulerMaxConcurrency = 8
	DefaultSchedulerTimeout        = 7200 * time.Second

	// Dataset defaults
	DefaultDatasetSourcePath      = "xnli.test.tsv"
	DefaultDatasetSourceLanguage  = "en"
	DefaultDatasetHypothesesCache = "xnli_hypo.json"
	DefaultDatasetOutputDir       = "data_output"

	// Evidence defaults
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data_output/evidence.db"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteJournalMode    = "WAL"
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second

	// Schedule defaults
	DefaultScheduleCron       = "0 * * * *"
	DefaultScheduleWindowSize = 40
	DefaultScheduleCursorPath = "data_output/cursor.db"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "polyglot"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 0.1
	DefaultTracingExporter      = "otlp"
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingServiceName   = "polyglot"
	DefaultTracingExportTimeout = 10 * time.Second
)

// DefaultEvaluators returns the default evaluator panel: accuracy 0.3,
// fluency 0.4 and naturalness 0.3.
func DefaultEvaluators() []EvaluatorConfig {
	return []EvaluatorConfig{
		{Name: "accuracy", Weight: 0.3},
		{Name: "fluency", Weight: 0.4},
		{Name: "naturalness", Weight: 0.3},
	}
}

// DefaultStageDurationBuckets returns the default histogram buckets for
// workflow stage durations, tuned for LLM round trips.
func DefaultStageDurationBuckets() []float64 {
	return []float64{0.5, 1, 2, 5, 10, 30, 60, 120}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Pre-execute defaults
	if cfg.PreExecute.FirstLanguage == "" {
		cfg.PreExecute.FirstLanguage = DefaultFirstLanguage
	}
	if cfg.PreExecute.CSRatio == "" {
		cfg.PreExecute.CSRatio = DefaultCSRatio
	}

	// Provider defaults
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProviderName
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Provider.Temperature == nil {
		t := DefaultProviderTemperature
		cfg.Provider.Temperature = &t
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = DefaultProviderMaxRetries
	}
	if cfg.Provider.RetryBackoff == 0 {
		cfg.Provider.RetryBackoff = DefaultProviderRetryBackoff
	}

	// Workflow defaults
	if cfg.Workflow.AcceptThreshold == 0 {
		cfg.Workflow.AcceptThreshold = DefaultAcceptThreshold
	}
	if cfg.Workflow.MaxRefine == nil {
		m := DefaultMaxRefine
		cfg.Workflow.MaxRefine = &m
	}
	if cfg.Workflow.GenerationAttempts == 0 {
		cfg.Workflow.GenerationAttempts = DefaultGenerationAttempts
	}
	if len(cfg.Workflow.Evaluators) == 0 {
		cfg.Workflow.Evaluators = DefaultEvaluators()
	}

	// Scheduler defaults
	if cfg.Scheduler.MaxConcurrency == 0 {
		cfg.Scheduler.MaxConcurrency = DefaultSchedulerMaxConcurrency
	}
	if cfg.Scheduler.Timeout == 0 {
		cfg.Scheduler.Timeout = DefaultSchedulerTimeout
	}

	// Dataset defaults
	if cfg.Dataset.SourcePath == "" {
		cfg.Dataset.SourcePath = DefaultDatasetSourcePath
	}
	if cfg.Dataset.SourceLanguage == "" {
		cfg.Dataset.SourceLanguage = DefaultDatasetSourceLanguage
	}
	if cfg.Dataset.HypothesesCache == "" {
		cfg.Dataset.HypothesesCache = DefaultDatasetHypothesesCache
	}
	if cfg.Dataset.OutputDir == "" {
		cfg.Dataset.OutputDir = DefaultDatasetOutputDir
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
	}
	if cfg.Evidence.SQLite.Path == "" {
		cfg.Evidence.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.Evidence.SQLite.MaxOpenConns == 0 {
		cfg.Evidence.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.Evidence.SQLite.MaxIdleConns == 0 {
		cfg.Evidence.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if cfg.Evidence.SQLite.JournalMode == "" {
		cfg.Evidence.SQLite.JournalMode = DefaultEvidenceSQLiteJournalMode
	}
	if cfg.Evidence.SQLite.BusyTimeout == 0 {
		cfg.Evidence.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if cfg.Evidence.Recorder.AsyncBuffer == 0 {
		cfg.Evidence.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.Evidence.Recorder.WriteTimeout == 0 {
		cfg.Evidence.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}

	// Schedule defaults
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.WindowSize == 0 {
		cfg.Schedule.WindowSize = DefaultScheduleWindowSize
	}
	if cfg.Schedule.CursorPath == "" {
		cfg.Schedule.CursorPath = DefaultScheduleCursorPath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.StageDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.StageDurationBuckets = DefaultStageDurationBuckets()
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.ExportTimeout == 0 {
		cfg.Telemetry.Tracing.ExportTimeout = DefaultTracingExportTimeout
	}
}
