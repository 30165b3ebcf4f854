package providers

import (
	"time"

	"mercator-hq/polyglot/pkg/config"
)

// ConfigFrom converts the application provider section into an adapter
// configuration with pooling defaults sized for the scheduler.
func ConfigFrom(cfg config.ProviderConfig, maxConcurrency int) ProviderConfig {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return ProviderConfig{
		Name:                cfg.Name,
		Type:                cfg.Name,
		BaseURL:             cfg.BaseURL,
		APIKey:              cfg.APIKey,
		Timeout:             cfg.Timeout,
		MaxRetries:          cfg.MaxRetries,
		RetryBackoff:        cfg.RetryBackoff,
		MaxIdleConns:        maxConcurrency * 2,
		MaxIdleConnsPerHost: maxConcurrency * 2,
		IdleConnTimeout:     90 * time.Second,
	}
}
