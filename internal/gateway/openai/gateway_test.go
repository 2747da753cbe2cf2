package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGateway(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		Temperature: 0.2,
		MaxTokens:   256,
		Timeout:     5 * time.Second,
		Logger:      zap.NewNop(),
	})
}

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "test-model",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Rates are competitive."},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
}`

func TestGateway_Generate(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	answer, err := gw.Generate(context.Background(), "benchmark auto rates in CA")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Rates are competitive." {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestGateway_ServerErrorIsTransient(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream overloaded","type":"server_error"}}`))
	})

	_, err := gw.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if !genErr.Retryable() {
		t.Errorf("server error must be retryable, got kind %s", genErr.Kind)
	}
}

func TestGateway_RateLimitIsTransient(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"requests"}}`))
	})

	_, err := gw.Generate(context.Background(), "prompt")

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != domain.GenerationTransient {
		t.Errorf("expected transient kind, got %s", genErr.Kind)
	}
}

func TestGateway_PolicyRejectionIsNotRetryable(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"request blocked by content policy","type":"invalid_request_error"}}`))
	})

	_, err := gw.Generate(context.Background(), "prompt")

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != domain.GenerationRejected {
		t.Errorf("expected rejected kind, got %s", genErr.Kind)
	}
	if genErr.Retryable() {
		t.Error("policy rejection must not be retryable")
	}
}

func TestGateway_ContentFilterFinishIsRejected(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": ""},
				"finish_reason": "content_filter"
			}]
		}`))
	})

	_, err := gw.Generate(context.Background(), "prompt")

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Kind != domain.GenerationRejected {
		t.Errorf("expected rejected kind, got %s", genErr.Kind)
	}
}

func TestGateway_TimeoutIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the connection's background read can observe
		// the client giving up and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	gw := NewGateway(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 50 * time.Millisecond,
		Logger:  zap.NewNop(),
	})

	_, err := gw.Generate(context.Background(), "prompt")

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !genErr.Retryable() {
		t.Errorf("timeout must be retryable, got kind %s", genErr.Kind)
	}
}
