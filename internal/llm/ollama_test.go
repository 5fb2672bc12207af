package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Extract_Success(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model": "llama3.1", "response": "{\"pbp\": \"001\"}", "done": true, "prompt_eval_count": 30, "eval_count": 5}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Extract(context.Background(), ExtractRequest{Text: "PBP 001"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if resp.Content != `{"pbp": "001"}` {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TokensUsed != 35 {
		t.Errorf("Expected 35 tokens, got %d", resp.TokensUsed)
	}
	if got.Model != "llama3.1" || got.Format != "json" || got.Stream {
		t.Errorf("Unexpected request: %+v", got)
	}
	if !strings.Contains(got.Prompt, "PBP 001") {
		t.Error("Prompt did not carry the screen text")
	}
}

func TestOllamaProvider_Extract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'nope' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope", Timeout: 5})
	_, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Expected model error, got %v", err)
	}
}

func TestOllamaProvider_Extract_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": "   ", "done": true}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"}); err == nil {
		t.Fatal("Expected error for empty response")
	}
}

func TestOllamaProvider_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Timeout: 5})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	unreachable, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1", Timeout: 1})
	if err := unreachable.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail for unreachable server")
	}
}
