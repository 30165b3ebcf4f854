// Package providers is the LLM transport layer shared by every agent role.
//
// Provider is the one interface the agent layer depends on. HTTPProvider
// implements the shared HTTP concerns (pooling, retries with exponential
// backoff, Retry-After handling, request counters) and adapters in
// subpackages embed it:
//
//   - openai: OpenAI chat completions and OpenAI-compatible servers
//
// Errors are typed so callers can branch on them:
//
//   - AuthError: 401/403, never retried
//   - RateLimitError: 429 that outlived the retry budget
//   - ProviderError: other non-2xx responses and network failures
//   - TimeoutError: the context ended; unwraps to the context error
//   - ParseError: the response body could not be decoded
package providers
