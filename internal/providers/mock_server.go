package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is an httptest server that speaks the OpenAI chat completions
// wire format. Responses are configured per path, either as a fixed queue or
// through a Responder that inspects the decoded request.
type MockServer struct {
	server    *httptest.Server
	responses map[string][]MockResponse
	responder func(ChatRequest) MockResponse
	requests  []ChatRequest
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

// ChatRequest is the decoded body of a chat completion request.
type ChatRequest struct {
	Path           string
	Authorization  string
	Model          string            `json:"model"`
	Temperature    *float64          `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// Prompt returns the content of the last message.
func (r ChatRequest) Prompt() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a single mock response for a path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.SetResponses(path, response)
}

// SetResponses queues responses for a path. Each request consumes one; the
// last response repeats once the queue is drained.
func (ms *MockServer) SetResponses(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// SetResponder routes every request through fn. It takes precedence over
// queued responses.
func (ms *MockServer) SetResponder(fn func(ChatRequest) MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responder = fn
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the decoded requests received so far.
func (ms *MockServer) Requests() []ChatRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]ChatRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, &req)
	}
	req.Path = r.URL.Path
	req.Authorization = r.Header.Get("Authorization")

	ms.mu.Lock()
	ms.requests = append(ms.requests, req)
	responder := ms.responder
	var response MockResponse
	ok := responder != nil
	if !ok {
		queue := ms.responses[r.URL.Path]
		if len(queue) > 0 {
			response = queue[0]
			if len(queue) > 1 {
				ms.responses[r.URL.Path] = queue[1:]
			}
			ok = true
		}
	}
	ms.mu.Unlock()

	if responder != nil {
		response = responder(req)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// MockOpenAIResponse creates a mock OpenAI chat completion response.
func MockOpenAIResponse(content string, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// MockJSONContent returns a completion whose content is v encoded as JSON.
func MockJSONContent(v any) MockResponse {
	data, _ := json.Marshal(v)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       MockOpenAIResponse(string(data), "gpt-4o-mini"),
	}
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}
