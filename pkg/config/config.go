package config

import "time"

// Config is the root configuration structure for Polyglot.
// It contains the language pair of a generation run, the agent backend,
// workflow and scheduler tuning, dataset locations, evidence storage and
// telemetry settings.
type Config struct {
	// PreExecute holds the language pair and code-switch ratio applied to
	// every scenario of a run. The key name matches existing run configs.
	PreExecute PreExecuteConfig `yaml:"pre_execute"`

	// Provider configures the OpenAI-compatible chat completion backend
	// used for every agent role.
	Provider ProviderConfig `yaml:"provider"`

	// Workflow contains the per-scenario state machine settings.
	Workflow WorkflowConfig `yaml:"workflow"`

	// Scheduler contains the batch window and concurrency settings.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Dataset contains source dataset and output artifact locations.
	Dataset DatasetConfig `yaml:"dataset"`

	// Prompts configures prompt template overrides.
	Prompts PromptsConfig `yaml:"prompts"`

	// Evidence contains configuration for the queryable scenario record store.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Schedule configures recurring windowed runs.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PreExecuteConfig holds the immutable language settings of a run.
type PreExecuteConfig struct {
	// FirstLanguage is the matrix (dominant) language.
	// Default: "English"
	FirstLanguage string `yaml:"first_language"`

	// SecondLanguage is the embedded language. It also names the output
	// artifacts (<second_language>.jsonl and friends).
	// Required.
	SecondLanguage string `yaml:"second_language"`

	// CSRatio is the target matrix language proportion, passed verbatim to
	// the translate and refine prompts (e.g. "7:3").
	// Default: "7:3"
	CSRatio string `yaml:"cs_ratio"`
}

// ProviderConfig contains configuration for the chat completion backend.
type ProviderConfig struct {
	// Name identifies the provider in logs and metrics.
	// Default: "openai"
	Name string `yaml:"name"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Default: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider.
	// This should typically be loaded from POLYGLOT_PROVIDER_API_KEY.
	// Optional for local OpenAI-compatible servers.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent with every request.
	// Required.
	Model string `yaml:"model"`

	// Temperature is the sampling temperature for every role.
	// Default: 1.0
	Temperature *float64 `yaml:"temperature"`

	// Timeout is the maximum duration for a single HTTP request.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of transport-level retry attempts.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the base delay of the exponential transport backoff.
	// Default: 1s
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// WorkflowConfig contains the per-scenario workflow settings.
type WorkflowConfig struct {
	// AcceptThreshold is the minimum aggregate score that stops refinement.
	// Default: 8.0
	AcceptThreshold float64 `yaml:"accept_threshold"`

	// MaxRefine is the maximum number of refinement rounds per scenario.
	// Zero disables refinement. Leaving it unset uses the default.
	// Default: 1
	MaxRefine *int `yaml:"max_refine"`

	// GenerationAttempts is the attempt budget for a translate or refine
	// call that returns an empty sentence.
	// Default: 4
	GenerationAttempts int `yaml:"generation_attempts"`

	// Evaluators is the evaluator panel and the weight of each score.
	// Default: accuracy 0.3, fluency 0.4, naturalness 0.3
	Evaluators []EvaluatorConfig `yaml:"evaluators"`
}

// EvaluatorConfig names one evaluator role and its weight.
type EvaluatorConfig struct {
	// Name is the evaluator name.
	// Options: "accuracy", "fluency", "naturalness", "cs_ratio", "socio_cultural"
	Name string `yaml:"name"`

	// Weight is the share of the aggregate score. Weights must sum to 1.
	Weight float64 `yaml:"weight"`
}

// SchedulerConfig contains the batch window and concurrency settings.
type SchedulerConfig struct {
	// Start is the first hypothesis index of the window (inclusive).
	// Default: 0
	Start int `yaml:"start"`

	// End is the last hypothesis index of the window (exclusive).
	// Zero means the end of the batch.
	// Default: 0
	End int `yaml:"end"`

	// MaxConcurrency caps the number of in-flight scenarios.
	// Default: 8
	MaxConcurrency int `yaml:"max_concurrency"`

	// Timeout is the global deadline of a batch.
	// Default: 2h
	Timeout time.Duration `yaml:"timeout"`
}

// DatasetConfig contains source dataset and output locations.
type DatasetConfig struct {
	// SourcePath is the XNLI-format TSV file.
	// Default: "xnli.test.tsv"
	SourcePath string `yaml:"source_path"`

	// SourceLanguage selects rows whose language column matches.
	// Default: "en"
	SourceLanguage string `yaml:"source_language"`

	// HypothesesCache is a JSON cache of the ordered hypothesis list.
	// Default: "xnli_hypo.json"
	HypothesesCache string `yaml:"hypotheses_cache"`

	// OutputDir receives the audit log, translations and TSV dataset.
	// Default: "data_output"
	OutputDir string `yaml:"output_dir"`
}

// PromptsConfig configures prompt template overrides.
type PromptsConfig struct {
	// Dir is a directory of <role>.tmpl files overriding the built-in
	// templates. Empty uses the built-ins only.
	Dir string `yaml:"dir"`

	// Watch reloads templates from Dir when they change on disk.
	// Default: false
	Watch bool `yaml:"watch"`
}

// EvidenceConfig contains configuration for scenario record storage.
type EvidenceConfig struct {
	// Enabled controls whether scenario records are stored.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention controls pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data_output/evidence.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "WAL", "DELETE", "TRUNCATE", "MEMORY"
	// Default: "WAL"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the channel buffer size for pending records.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the maximum duration of a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig controls pruning of scenario records.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps them forever.
	// Default: 0
	Days int `yaml:"days"`

	// MaxRecords caps the store size; the oldest records are pruned first.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveDir receives a JSON export of pruned records. Empty deletes
	// without archiving.
	ArchiveDir string `yaml:"archive_dir"`
}

// ScheduleConfig configures recurring windowed runs.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression.
	// Default: "0 * * * *"
	Cron string `yaml:"cron"`

	// WindowSize is the number of hypotheses processed per tick.
	// Default: 40
	WindowSize int `yaml:"window_size"`

	// CursorPath is the database file storing the next window start.
	// Default: "data_output/cursor.db"
	CursorPath string `yaml:"cursor_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// File additionally writes logs to this path. Empty logs to stderr only.
	File string `yaml:"file"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress exposes /metrics on this address while a run is in
	// progress. Empty disables the endpoint.
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "polyglot"
	Namespace string `yaml:"namespace"`

	// StageDurationBuckets defines histogram buckets for stage duration (seconds).
	// Default: [0.5, 1, 2, 5, 10, 30, 60, 120]
	StageDurationBuckets []float64 `yaml:"stage_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "polyglot"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// ExportTimeout bounds each OTLP export call.
	// Default: 10s
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// IsEnabled reports whether scenario records are stored.
func (c EvidenceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether metrics are collected.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RefineLimit returns the configured refinement cap.
func (c WorkflowConfig) RefineLimit() int {
	if c.MaxRefine == nil {
		return DefaultMaxRefine
	}
	return *c.MaxRefine
}

// TemperatureValue returns the configured sampling temperature.
func (c ProviderConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultProviderTemperature
	}
	return *c.Temperature
}
