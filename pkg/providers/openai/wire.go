package openai

import (
	"errors"

	"mercator-hq/polyglot/pkg/providers"
)

// Wire types of POST /chat/completions. Only the fields the workflow reads
// or sets are modelled.
type (
	chatRequest struct {
		Model          string          `json:"model"`
		Messages       []chatMessage   `json:"messages"`
		Temperature    *float64        `json:"temperature,omitempty"`
		MaxTokens      int             `json:"max_tokens,omitempty"`
		N              int             `json:"n,omitempty"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		ID      string `json:"id"`
		Created int64  `json:"created"`
		Model   string `json:"model"`
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
)

var errNoChoices = errors.New("response has no choices")

// encodeRequest asks for exactly one choice; the agent reads only the first.
func encodeRequest(req *providers.CompletionRequest) *chatRequest {
	out := &chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.ResponseFormat != "" {
		out.ResponseFormat = &responseFormat{Type: req.ResponseFormat}
	}
	return out
}

// decodeResponse keeps the first choice. OpenAI finish reasons are the
// provider-agnostic values, so they pass through unchanged.
func decodeResponse(resp *chatResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}
	first := resp.Choices[0]
	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      first.Message.Content,
		FinishReason: first.FinishReason,
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Created: resp.Created,
	}, nil
}
