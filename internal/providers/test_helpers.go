package providers

import (
	"context"
	"sync"
	"time"

	"mercator-hq/polyglot/pkg/providers"
)

// TestConfig returns a test provider configuration with fast retries.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		MaxRetries:          2,
		RetryBackoff:        time.Millisecond,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// FakeProvider is an in-memory providers.Provider. Reply decides the content
// of each completion from the request.
type FakeProvider struct {
	Reply func(req *providers.CompletionRequest) (string, error)

	mu       sync.Mutex
	requests []*providers.CompletionRequest
}

// SendCompletion records req and answers with Reply.
func (f *FakeProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &providers.TimeoutError{Provider: "fake", Cause: err}
	}

	content, err := f.Reply(req)
	if err != nil {
		return nil, err
	}
	return &providers.CompletionResponse{
		ID:           "fake",
		Model:        req.Model,
		Content:      content,
		FinishReason: providers.FinishReasonStop,
	}, nil
}

// GetName returns "fake".
func (f *FakeProvider) GetName() string { return "fake" }

// GetStats returns the number of requests seen.
func (f *FakeProvider) GetStats() providers.ProviderStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return providers.ProviderStats{TotalRequests: int64(len(f.requests))}
}

// Close is a no-op.
func (f *FakeProvider) Close() error { return nil }

// Requests returns the requests seen so far.
func (f *FakeProvider) Requests() []*providers.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*providers.CompletionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}
