package searchclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shopkit/internal/core"
)

// fastConfig returns a config with short backoffs so retry tests stay quick.
func fastConfig(baseURL string) Config {
	cfg := DefaultConfig("test", baseURL)
	cfg.InitialBackoff = 5 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	return cfg
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("expected path '/search', got '%s'", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "desk lamps" {
			t.Errorf("expected query 'desk lamps', got '%s'", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)

	q := url.Values{}
	q.Set("q", "desk lamps")
	resp, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
		Query:    q,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"message":"hello"}` {
		t.Errorf("unexpected body: %s", string(resp.Body))
	}
}

func TestClient_Do_WithRequestBody(t *testing.T) {
	var receivedBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type 'application/json', got '%s'", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &receivedBody)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), nil)

	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/runs",
		Body:     map[string]string{"search": "desk lamps"},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedBody["search"] != "desk lamps" {
		t.Errorf("expected search 'desk lamps', got '%v'", receivedBody["search"])
	}
}

func TestClient_Do_Headers(t *testing.T) {
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(fastConfig(server.URL), func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer token")
	})

	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
		Headers: map[string]string{
			"X-Custom": "custom-value",
		},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedHeaders.Get("Authorization") != "Bearer token" {
		t.Errorf("expected Authorization header 'Bearer token', got '%s'", receivedHeaders.Get("Authorization"))
	}
	if receivedHeaders.Get("X-Custom") != "custom-value" {
		t.Errorf("expected X-Custom header 'custom-value', got '%s'", receivedHeaders.Get("X-Custom"))
	}
}

func TestClient_Do_ErrorParsing(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   core.ErrorType
		wantStatus int
	}{
		{
			name:       "bad request keeps status",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"message":"bad query"}}`,
			wantType:   core.ErrorTypeProvider,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized keeps status",
			statusCode: http.StatusUnauthorized,
			body:       `{"error":{"message":"invalid key"}}`,
			wantType:   core.ErrorTypeProvider,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "server error maps to bad gateway",
			statusCode: http.StatusInternalServerError,
			body:       `{"error":{"message":"server error"}}`,
			wantType:   core.ErrorTypeProvider,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "request timeout maps to timeout type",
			statusCode: http.StatusRequestTimeout,
			body:       `{"error":{"message":"too slow"}}`,
			wantType:   core.ErrorTypeTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			config := fastConfig(server.URL)
			config.MaxRetries = 0
			client := New(config, nil)

			_, err := client.Do(context.Background(), Request{
				Method:   http.MethodGet,
				Endpoint: "/search",
			})

			if err == nil {
				t.Fatal("expected error, got nil")
			}
			serviceErr, ok := err.(*core.ServiceError)
			if !ok {
				t.Fatalf("expected ServiceError, got %T", err)
			}
			if serviceErr.Type != tt.wantType {
				t.Errorf("expected error type %s, got %s", tt.wantType, serviceErr.Type)
			}
			if serviceErr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, serviceErr.StatusCode)
			}
		})
	}
}

func TestClient_Do_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&attempts, 1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 3
	client := New(config, nil)

	resp, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestClient_Do_RetriesExhausted(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 2
	client := New(config, nil)

	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	serviceErr, ok := err.(*core.ServiceError)
	if !ok {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Message != "overloaded" {
		t.Errorf("expected message 'overloaded', got '%s'", serviceErr.Message)
	}
	// 1 initial + 2 retries = 3 attempts
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestClient_Do_NonRetryableStatusFailsImmediately(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 3
	client := New(config, nil)

	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt for a non-retryable status, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestClient_Do_ContextCancelledDuringBackoff(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 5
	config.InitialBackoff = time.Second
	client := New(config, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestClient_CalculateBackoff(t *testing.T) {
	config := DefaultConfig("test", "http://example.test")
	config.InitialBackoff = 100 * time.Millisecond
	config.MaxBackoff = 300 * time.Millisecond
	config.BackoffFactor = 2.0
	client := New(config, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond}, // capped at MaxBackoff
		{4, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := client.calculateBackoff(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected backoff %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"server error"}}`))
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 0
	config.CircuitBreaker = &CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Second,
	}
	client := New(config, nil)

	// Make requests until the circuit opens
	for i := 0; i < 5; i++ {
		_, _ = client.Do(context.Background(), Request{
			Method:   http.MethodGet,
			Endpoint: "/search",
		})
	}

	// Circuit is open now: requests fail without reaching the server
	_, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})

	if err == nil {
		t.Fatal("expected circuit breaker error")
	}
	serviceErr, ok := err.(*core.ServiceError)
	if !ok {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, serviceErr.StatusCode)
	}
	if !strings.Contains(serviceErr.Message, "circuit breaker") {
		t.Errorf("expected circuit breaker message, got: %s", serviceErr.Message)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts before circuit opened, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestCircuitBreaker_ClosesAfterTimeout(t *testing.T) {
	var attempts int32
	var healthy atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		if healthy.Load() {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"server error"}}`))
	}))
	defer server.Close()

	config := fastConfig(server.URL)
	config.MaxRetries = 0
	config.CircuitBreaker = &CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          50 * time.Millisecond,
	}
	client := New(config, nil)

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_, _ = client.Do(context.Background(), Request{
			Method:   http.MethodGet,
			Endpoint: "/search",
		})
	}
	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/search"}); err == nil {
		t.Fatal("expected circuit to be open")
	}

	// After the timeout the breaker goes half-open and a success closes it
	healthy.Store(true)
	time.Sleep(100 * time.Millisecond)

	resp, err := client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})
	if err != nil {
		t.Fatalf("expected half-open probe to succeed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	resp, err = client.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/search",
	})
	if err != nil {
		t.Fatalf("expected closed circuit to allow requests: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestCircuitBreaker_StateMachine(t *testing.T) {
	cb := newCircuitBreaker(2, 2, 50*time.Millisecond)

	if cb.State() != "closed" {
		t.Fatalf("expected initial state 'closed', got '%s'", cb.State())
	}

	// Failures below the threshold keep the circuit closed
	cb.RecordFailure()
	if cb.State() != "closed" {
		t.Errorf("expected 'closed' after 1 failure, got '%s'", cb.State())
	}

	// A success in the closed state resets the failure count
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.State() != "closed" {
		t.Errorf("expected 'closed' after reset and 1 failure, got '%s'", cb.State())
	}

	// Reaching the threshold opens the circuit and blocks requests
	cb.RecordFailure()
	if cb.State() != "open" {
		t.Fatalf("expected 'open' at threshold, got '%s'", cb.State())
	}
	if cb.Allow() {
		t.Error("expected open circuit to block requests")
	}

	// After the timeout the next probe transitions to half-open
	time.Sleep(60 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected probe to be allowed after timeout")
	}
	if cb.State() != "half-open" {
		t.Fatalf("expected 'half-open' after timeout, got '%s'", cb.State())
	}

	// A failure in half-open reopens immediately
	cb.RecordFailure()
	if cb.State() != "open" {
		t.Fatalf("expected 'open' after half-open failure, got '%s'", cb.State())
	}

	// Enough successes in half-open close the circuit
	time.Sleep(60 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected probe to be allowed after second timeout")
	}
	cb.RecordSuccess()
	if cb.State() != "half-open" {
		t.Errorf("expected 'half-open' after 1 success, got '%s'", cb.State())
	}
	cb.RecordSuccess()
	if cb.State() != "closed" {
		t.Errorf("expected 'closed' after %d successes, got '%s'", 2, cb.State())
	}
}
