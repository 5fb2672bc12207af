package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_Extract_Success(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: "  {\"full_name\": \"Jane Doe\"}\n",
				},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 100},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Extract(context.Background(), ExtractRequest{Text: "NAME: JANE DOE"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if resp.Content != `{"full_name": "Jane Doe"}` {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "NAME: JANE DOE") {
		t.Errorf("Prompt did not carry the screen text: %+v", got.Messages)
	}
	if got.MaxTokens != 1500 {
		t.Errorf("Expected default max tokens 1500, got %d", got.MaxTokens)
	}
}

func TestOpenAIProvider_Extract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "bad-key", BaseURL: server.URL, Timeout: 5})
	if _, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"}); err == nil {
		t.Fatal("Expected error for 401 response")
	}
}

func TestOpenAIProvider_Extract_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Model: "gpt-4o-mini"})
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	_, err := provider.Extract(context.Background(), ExtractRequest{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "no response") {
		t.Fatalf("Expected no-response error, got %v", err)
	}
}

func TestOpenAIProvider_Extract_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := provider.Extract(ctx, ExtractRequest{Text: "x"}); err == nil {
		t.Fatal("Expected error on context timeout")
	}
}

func TestOpenAIProvider_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ModelsList{})
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
	if provider.Endpoint() != server.URL+"/chat/completions" {
		t.Errorf("Unexpected endpoint %s", provider.Endpoint())
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
