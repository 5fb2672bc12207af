package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider extracts with a local model served by Ollama.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates an Ollama provider. No API key is needed.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(cfg, 120*time.Second), // local models are slow
		cfg:        cfg,
	}, nil
}

func (p *OllamaProvider) Name() string     { return "ollama" }
func (p *OllamaProvider) Model() string    { return p.cfg.Model }
func (p *OllamaProvider) Endpoint() string { return p.baseURL + "/api/generate" }

// Ping lists installed models.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to Ollama at %s: %w", p.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama check failed: HTTP %d from %s", resp.StatusCode, p.baseURL)
	}
	return nil
}

func (p *OllamaProvider) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  p.cfg.Model,
		Prompt: prompt(req),
		System: systemPrompt,
		Format: "json",
		Stream: false,
		Options: map[string]any{
			"temperature": 0,
			"num_predict": p.cfg.maxTokens(req),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("Ollama error: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("Ollama error: HTTP %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return nil, fmt.Errorf("empty response from Ollama")
	}

	return &ExtractResponse{
		Content:    strings.TrimSpace(out.Response),
		Model:      out.Model,
		TokensUsed: out.PromptEvalCount + out.EvalCount,
	}, nil
}
