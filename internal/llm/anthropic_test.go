package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicProvider_Extract_Success(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Missing anthropic-version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)

		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"state\": \"FL\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 40, "output_tokens": 10}
		}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5, MaxTokens: 800})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Extract(context.Background(), ExtractRequest{Text: "STATE FL"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if resp.Content != `{"state": "FL"}` {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TokensUsed != 50 {
		t.Errorf("Expected 50 tokens, got %d", resp.TokensUsed)
	}
	if got.MaxTokens != 800 || got.System != systemPrompt {
		t.Errorf("Unexpected request: %+v", got)
	}
	if len(got.Messages) != 1 || !strings.Contains(got.Messages[0].Content, "STATE FL") {
		t.Errorf("Prompt did not carry the screen text")
	}
}

func TestAnthropicProvider_Extract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	_, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "rate_limit_error") || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
}

func TestAnthropicProvider_Extract_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	_, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("Expected decode error, got %v", err)
	}
}

func TestAnthropicProvider_Extract_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [], "usage": {}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"}); err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicProvider_Ping(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "p"}]}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	status = http.StatusUnauthorized
	if err := provider.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail on 401")
	}
}
