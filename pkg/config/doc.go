// Package config provides configuration management for Polyglot.
//
// Configuration is read from a YAML file, completed with defaults and
// optionally overridden from the environment:
//
//	cfg, err := config.LoadConfig("config/config_vi.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config/config_vi.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention POLYGLOT_SECTION_FIELD:
//
//   - POLYGLOT_PROVIDER_API_KEY overrides provider.api_key
//   - POLYGLOT_PRE_EXECUTE_SECOND_LANGUAGE overrides pre_execute.second_language
//   - POLYGLOT_SCHEDULER_MAX_CONCURRENCY overrides scheduler.max_concurrency
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (all field errors are reported together)
//
// # Example
//
//	pre_execute:
//	  first_language: English
//	  second_language: Vietnamese
//	  cs_ratio: "7:3"
//	provider:
//	  model: gpt-4o-mini
//	workflow:
//	  max_refine: 1
//	  evaluators:
//	    - {name: accuracy, weight: 0.3}
//	    - {name: fluency, weight: 0.4}
//	    - {name: naturalness, weight: 0.3}
//	scheduler:
//	  start: 1200
//	  end: 1240
//	  max_concurrency: 8
//	  timeout: 2h
package config
