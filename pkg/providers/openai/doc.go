// Package openai implements the chat completions adapter used by every
// agent role.
//
// NewProvider targets api.openai.com and requires an API key.
// NewCompatibleProvider targets self-hosted OpenAI-compatible servers and
// accepts an empty key:
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("POLYGLOT_PROVIDER_API_KEY"),
//	})
//
// Requests that set ResponseFormat send {"response_format": {"type": ...}},
// which the agent layer uses to ask for JSON objects.
package openai
