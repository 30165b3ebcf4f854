package providers

import "context"

// Provider sends chat completion requests to an LLM backend.
//
// Implementations must respect context cancellation and return as soon as
// the context is done.
//
//	resp, err := provider.SendCompletion(ctx, &CompletionRequest{
//	    Model:          "gpt-4o-mini",
//	    Messages:       []Message{{Role: RoleUser, Content: prompt}},
//	    ResponseFormat: ResponseFormatJSON,
//	})
type Provider interface {
	// SendCompletion sends one completion request and returns the first choice.
	// Transient failures are retried inside the call.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// GetName returns the provider's configured name.
	GetName() string

	// GetStats returns request counters for this provider.
	GetStats() ProviderStats

	// Close releases idle connections. The provider must not be used afterwards.
	Close() error
}
