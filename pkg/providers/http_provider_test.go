package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig(url string) ProviderConfig {
	return ProviderConfig{
		Name:         "test-provider",
		BaseURL:      url,
		Timeout:      5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}
}

func TestHTTPProvider_RetryOn5xx(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "internal server error"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "success"}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(testConfig(server.URL))

	resp, err := provider.DoRequest(context.Background(), "POST", server.URL+"/test", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("expected request to succeed after retries, got error: %v", err)
	}
	defer resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	stats := provider.GetStats()
	if stats.TotalRequests != 3 || stats.FailedRequests != 2 || stats.Retries != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastError != nil {
		t.Errorf("expected LastError cleared after success, got %v", stats.LastError)
	}
}

func TestHTTPProvider_NoRetryOnClientErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		check      func(error) bool
	}{
		{
			name:       "400 bad request",
			statusCode: http.StatusBadRequest,
			check: func(err error) bool {
				var pe *ProviderError
				return errors.As(err, &pe) && pe.StatusCode == http.StatusBadRequest
			},
		},
		{
			name:       "409 conflict",
			statusCode: http.StatusConflict,
			check: func(err error) bool {
				var pe *ProviderError
				return errors.As(err, &pe) && pe.StatusCode == http.StatusConflict
			},
		},
		{
			name:       "401 unauthorized",
			statusCode: http.StatusUnauthorized,
			check: func(err error) bool {
				var ae *AuthError
				return errors.As(err, &ae)
			},
		},
		{
			name:       "403 forbidden",
			statusCode: http.StatusForbidden,
			check: func(err error) bool {
				var ae *AuthError
				return errors.As(err, &ae)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"error": "client error"}`))
			}))
			defer server.Close()

			provider := NewHTTPProvider(testConfig(server.URL))
			_, err := provider.DoRequest(context.Background(), "POST", server.URL, []byte(`{}`), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
			if got := atomic.LoadInt32(&attempts); got != 1 {
				t.Errorf("expected 1 attempt, got %d", got)
			}
		})
	}
}

func TestHTTPProvider_RetriesRateLimit(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHTTPProvider(testConfig(server.URL))
	resp, err := provider.DoRequest(context.Background(), "GET", server.URL, nil, nil)
	if err != nil {
		t.Fatalf("expected success after 429, got %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestHTTPProvider_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 1
	provider := NewHTTPProvider(cfg)

	_, err := provider.DoRequest(context.Background(), "GET", server.URL, nil, nil)
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
}

func TestHTTPProvider_MaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	provider := NewHTTPProvider(cfg)

	_, err := provider.DoRequest(context.Background(), "GET", server.URL, nil, nil)
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 ProviderError, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestHTTPProvider_Backoff(t *testing.T) {
	provider := NewHTTPProvider(ProviderConfig{Name: "p", RetryBackoff: 100 * time.Millisecond})

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := provider.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestHTTPProvider_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryBackoff = time.Hour
	provider := NewHTTPProvider(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := provider.DoRequest(ctx, "GET", server.URL, nil, nil)
	if !IsCancelled(err) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("DoRequest did not return promptly after cancellation")
	}
}

func TestHTTPProvider_DoJSONRequest_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(testConfig(server.URL))

	var out map[string]any
	err := provider.DoJSONRequest(context.Background(), "POST", server.URL, map[string]string{"a": "b"}, &out, nil)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if pe.RawResponse != "not json" {
		t.Errorf("RawResponse = %q", pe.RawResponse)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(\"\") = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
}
