package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
pre_execute:
  first_language: English
  second_language: Vietnamese
  cs_ratio: "6:4"

provider:
  base_url: "http://localhost:11434/v1"
  model: "llama3"
  temperature: 0.2
  timeout: "30s"

workflow:
  max_refine: 2
  evaluators:
    - name: accuracy
      weight: 0.5
    - name: fluency
      weight: 0.5

scheduler:
  start: 1200
  end: 1240
  max_concurrency: 4
  timeout: "10m"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.PreExecute.SecondLanguage != "Vietnamese" {
		t.Errorf("expected second language %q, got %q", "Vietnamese", cfg.PreExecute.SecondLanguage)
	}
	if cfg.PreExecute.CSRatio != "6:4" {
		t.Errorf("expected cs ratio %q, got %q", "6:4", cfg.PreExecute.CSRatio)
	}
	if cfg.Provider.TemperatureValue() != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Provider.TemperatureValue())
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Provider.Timeout)
	}
	if cfg.Workflow.RefineLimit() != 2 {
		t.Errorf("expected max refine 2, got %d", cfg.Workflow.RefineLimit())
	}
	if len(cfg.Workflow.Evaluators) != 2 {
		t.Errorf("expected 2 evaluators, got %d", len(cfg.Workflow.Evaluators))
	}
	if cfg.Scheduler.Start != 1200 || cfg.Scheduler.End != 1240 {
		t.Errorf("expected window [1200, 1240), got [%d, %d)", cfg.Scheduler.Start, cfg.Scheduler.End)
	}
	if cfg.Scheduler.Timeout != 10*time.Minute {
		t.Errorf("expected timeout 10m, got %v", cfg.Scheduler.Timeout)
	}

	// Untouched sections are defaulted.
	if cfg.Dataset.OutputDir != DefaultDatasetOutputDir {
		t.Errorf("expected output dir %q, got %q", DefaultDatasetOutputDir, cfg.Dataset.OutputDir)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "pre_execute: [unclosed")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
pre_execute:
  first_language: English
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"pre_execute.second_language", "provider.model"} {
		if !fields[want] {
			t.Errorf("expected error for %s, got %v", want, verr.Errors)
		}
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
pre_execute:
  second_language: Spanish
provider:
  model: "gpt-4o-mini"
`)

	t.Setenv("POLYGLOT_PROVIDER_API_KEY", "sk-env")
	t.Setenv("POLYGLOT_PRE_EXECUTE_SECOND_LANGUAGE", "Vietnamese")
	t.Setenv("POLYGLOT_SCHEDULER_MAX_CONCURRENCY", "16")
	t.Setenv("POLYGLOT_WORKFLOW_MAX_REFINE", "0")
	t.Setenv("POLYGLOT_SCHEDULER_TIMEOUT", "90s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Provider.APIKey != "sk-env" {
		t.Errorf("expected api key from env, got %q", cfg.Provider.APIKey)
	}
	if cfg.PreExecute.SecondLanguage != "Vietnamese" {
		t.Errorf("expected env to override second language, got %q", cfg.PreExecute.SecondLanguage)
	}
	if cfg.Scheduler.MaxConcurrency != 16 {
		t.Errorf("expected max concurrency 16, got %d", cfg.Scheduler.MaxConcurrency)
	}
	if cfg.Workflow.RefineLimit() != 0 {
		t.Errorf("expected max refine 0, got %d", cfg.Workflow.RefineLimit())
	}
	if cfg.Scheduler.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Scheduler.Timeout)
	}
}

func TestLoadConfigWithEnvOverrides_SuppliesRequiredFields(t *testing.T) {
	path := writeConfig(t, "pre_execute:\n  first_language: English\n")

	t.Setenv("POLYGLOT_PRE_EXECUTE_SECOND_LANGUAGE", "Vietnamese")
	t.Setenv("POLYGLOT_PROVIDER_MODEL", "gpt-4o-mini")

	if _, err := LoadConfigWithEnvOverrides(path); err != nil {
		t.Fatalf("expected env to satisfy required fields, got %v", err)
	}
}
