package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// maxRetryAfter caps a server-provided Retry-After delay.
const maxRetryAfter = time.Minute

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, retry with exponential backoff, and
// request counters. Adapters embed it and implement SendCompletion.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
	logger *slog.Logger

	statsMu sync.RWMutex
	stats   ProviderStats
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: slog.Default().With("component", "provider", "provider", config.Name),
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// GetStats returns a snapshot of the request counters.
func (p *HTTPProvider) GetStats() ProviderStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *HTTPProvider) recordAttempt(retry bool, err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.TotalRequests++
	if retry {
		p.stats.Retries++
	}
	if err != nil {
		p.stats.FailedRequests++
		p.stats.LastError = err
		return
	}
	p.stats.LastError = nil
	p.stats.LastSuccess = time.Now()
}

// backoff returns the delay before retry number attempt (1-based).
func (p *HTTPProvider) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * p.config.RetryBackoff
}

// DoRequest sends one logical request, retrying up to MaxRetries times.
//
// Transport errors, HTTP 5xx and HTTP 429 are retried with exponential
// backoff; a 429 Retry-After hint (capped at one minute) replaces the
// computed delay. 401/403 and the other 4xx codes fail immediately.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error
	var hint time.Duration

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := hint
			if wait <= 0 {
				wait = p.backoff(attempt)
			}
			p.logger.Debug("retrying request", "attempt", attempt, "max_retries", p.config.MaxRetries, "backoff", wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, p.timeoutError(err)
			}
		}

		resp, res := p.attempt(ctx, method, url, body, headers)
		p.recordAttempt(attempt > 0, res.err)
		if res.err == nil {
			return resp, nil
		}
		if !res.retry {
			return nil, res.err
		}
		lastErr, hint = res.err, res.wait
		p.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", res.err)
	}

	return nil, lastErr
}

// attemptResult classifies one HTTP attempt.
type attemptResult struct {
	err   error
	retry bool
	wait  time.Duration // server hint for the next delay
}

func (p *HTTPProvider) attempt(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, attemptResult) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, attemptResult{err: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, attemptResult{err: p.timeoutError(ctx.Err())}
		}
		return nil, attemptResult{err: &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}, retry: true}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, attemptResult{}
	}

	msg, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return nil, p.classifyStatus(resp, string(msg))
}

func (p *HTTPProvider) classifyStatus(resp *http.Response, msg string) attemptResult {
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return attemptResult{err: &AuthError{Provider: p.config.Name, Message: msg}}
	case code == http.StatusTooManyRequests:
		after := min(parseRetryAfter(resp.Header.Get("Retry-After")), maxRetryAfter)
		return attemptResult{
			err:   &RateLimitError{Provider: p.config.Name, RetryAfter: after, Message: msg},
			retry: true,
			wait:  after,
		}
	case code >= 500:
		return attemptResult{err: &ProviderError{Provider: p.config.Name, StatusCode: code, Message: msg}, retry: true}
	default:
		return attemptResult{err: &ProviderError{Provider: p.config.Name, StatusCode: code, Message: msg}}
	}
}

func (p *HTTPProvider) timeoutError(cause error) error {
	return &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: cause}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoJSONRequest performs a JSON request and decodes the response.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody any, respBody any, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return p.timeoutError(ctx.Err())
		}
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("read body: %w", err)}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{Provider: p.config.Name, RawResponse: string(responseBytes), Cause: err}
		}
	}

	return nil
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
