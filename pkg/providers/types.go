package providers

import "time"

// Roles, finish reasons and response formats shared by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"

	// ResponseFormatJSON asks the model for a single JSON object.
	ResponseFormatJSON = "json_object"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is the token accounting reported with a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a backend-independent chat completion call.
// A nil Temperature leaves the backend default. Metadata is never sent;
// it only labels logs and spans.
type CompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat string            `json:"response_format,omitempty"`
	Metadata       map[string]string `json:"-"`
}

// CompletionResponse is the first choice of a completion.
type CompletionResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason"`
	Usage        TokenUsage `json:"usage"`
	Created      int64      `json:"created"` // unix seconds
}

// ProviderStats are the HTTP counters of a provider. TotalRequests counts
// every attempt, retries included. LastError is cleared by a success.
type ProviderStats struct {
	TotalRequests  int64
	FailedRequests int64
	Retries        int64
	LastError      error
	LastSuccess    time.Time
}

// ProviderConfig configures one backend instance.
type ProviderConfig struct {
	Name    string // used in logs and errors
	Type    string // "openai" or "generic"
	BaseURL string // includes the version segment, e.g. https://api.openai.com/v1
	APIKey  string // optional for generic backends

	Timeout      time.Duration // per attempt
	MaxRetries   int           // retries after the first attempt
	RetryBackoff time.Duration // base of the exponential backoff

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}
