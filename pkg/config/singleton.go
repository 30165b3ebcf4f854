package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// The process configuration is owned by the command layer. Packages below
// it receive explicit values built from it and never read it directly.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once
	initErr  error
)

// Initialize loads path with environment overrides and installs the result
// as the process configuration. Only the first call loads anything; later
// calls return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the process configuration, nil before a successful
// Initialize.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig installs cfg as the process configuration. Used by tests.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path again and swaps it in. On any load or validation
// error the installed configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", path, err)
	}
	current.Store(cfg)
	return nil
}
