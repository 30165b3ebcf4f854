package providerfactory

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/providers"
)

func TestNewProvider_OpenAI(t *testing.T) {
	config := providers.ProviderConfig{
		Name:    "openai",
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "test-key",
		Timeout: 30 * time.Second,
	}

	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("NewProvider() failed: %v", err)
	}
	defer provider.Close()

	if provider.GetName() != "openai" {
		t.Errorf("expected provider name openai, got %s", provider.GetName())
	}
}

func TestNewProvider_OpenAIRequiresKey(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "openai"})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}

	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Field != "api_key" {
		t.Errorf("expected field api_key, got %s", cfgErr.Field)
	}
}

func TestNewProvider_Generic(t *testing.T) {
	config := providers.ProviderConfig{
		Name:    "vllm",
		BaseURL: "http://localhost:8000/v1",
	}

	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("NewProvider() failed: %v", err)
	}
	defer provider.Close()

	if provider.GetName() != "vllm" {
		t.Errorf("expected provider name vllm, got %s", provider.GetName())
	}
}

func TestNewProvider_UnsupportedType(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "x", Type: "anthropic", APIKey: "k"})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestInferProviderType(t *testing.T) {
	tests := map[string]string{
		"openai":  "openai",
		"ollama":  "generic",
		"vllm":    "generic",
		"unknown": "generic",
	}
	for name, want := range tests {
		if got := inferProviderType(name); got != want {
			t.Errorf("inferProviderType(%q) = %q, want %q", name, got, want)
		}
	}
}
