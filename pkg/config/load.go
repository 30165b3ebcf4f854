package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "POLYGLOT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention POLYGLOT_SECTION_FIELD (e.g., POLYGLOT_PROVIDER_API_KEY).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration from memory and applies defaults.
// The result is not validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format POLYGLOT_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Pre-execute overrides
	envString("PRE_EXECUTE_FIRST_LANGUAGE", &cfg.PreExecute.FirstLanguage)
	envString("PRE_EXECUTE_SECOND_LANGUAGE", &cfg.PreExecute.SecondLanguage)
	envString("PRE_EXECUTE_CS_RATIO", &cfg.PreExecute.CSRatio)

	// Provider overrides
	envString("PROVIDER_NAME", &cfg.Provider.Name)
	envString("PROVIDER_BASE_URL", &cfg.Provider.BaseURL)
	envString("PROVIDER_API_KEY", &cfg.Provider.APIKey)
	envString("PROVIDER_MODEL", &cfg.Provider.Model)
	if val := os.Getenv(EnvPrefix + "PROVIDER_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Provider.Temperature = &f
		}
	}
	envDuration("PROVIDER_TIMEOUT", &cfg.Provider.Timeout)
	envInt("PROVIDER_MAX_RETRIES", &cfg.Provider.MaxRetries)

	// Workflow overrides
	envFloat("WORKFLOW_ACCEPT_THRESHOLD", &cfg.Workflow.AcceptThreshold)
	if val := os.Getenv(EnvPrefix + "WORKFLOW_MAX_REFINE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Workflow.MaxRefine = &i
		}
	}
	envInt("WORKFLOW_GENERATION_ATTEMPTS", &cfg.Workflow.GenerationAttempts)

	// Scheduler overrides
	envInt("SCHEDULER_START", &cfg.Scheduler.Start)
	envInt("SCHEDULER_END", &cfg.Scheduler.End)
	envInt("SCHEDULER_MAX_CONCURRENCY", &cfg.Scheduler.MaxConcurrency)
	envDuration("SCHEDULER_TIMEOUT", &cfg.Scheduler.Timeout)

	// Dataset overrides
	envString("DATASET_SOURCE_PATH", &cfg.Dataset.SourcePath)
	envString("DATASET_SOURCE_LANGUAGE", &cfg.Dataset.SourceLanguage)
	envString("DATASET_HYPOTHESES_CACHE", &cfg.Dataset.HypothesesCache)
	envString("DATASET_OUTPUT_DIR", &cfg.Dataset.OutputDir)

	// Prompt overrides
	envString("PROMPTS_DIR", &cfg.Prompts.Dir)
	envBool("PROMPTS_WATCH", &cfg.Prompts.Watch)

	// Evidence overrides
	if val := os.Getenv(EnvPrefix + "EVIDENCE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Evidence.Enabled = &b
		}
	}
	envString("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envInt("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	if val := os.Getenv(EnvPrefix + "EVIDENCE_RETENTION_MAX_RECORDS"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Evidence.Retention.MaxRecords = n
		}
	}

	// Schedule overrides
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envInt("SCHEDULE_WINDOW_SIZE", &cfg.Schedule.WindowSize)
	envString("SCHEDULE_CURSOR_PATH", &cfg.Schedule.CursorPath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString("TELEMETRY_LOGGING_FILE", &cfg.Telemetry.Logging.File)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
