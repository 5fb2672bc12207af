package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider extracts through the Chat Completions API.
type OpenAIProvider struct {
	client  *openai.Client
	cfg     Config
	baseURL string
}

// NewOpenAIProvider creates an OpenAI provider. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = newHTTPClient(cfg, 60*time.Second)

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		baseURL: clientCfg.BaseURL,
	}, nil
}

func (p *OpenAIProvider) Name() string     { return "openai" }
func (p *OpenAIProvider) Model() string    { return p.cfg.Model }
func (p *OpenAIProvider) Endpoint() string { return p.baseURL + "/chat/completions" }

// Ping lists models, which needs a valid key but costs no tokens.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI API check failed: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt(req)},
		},
		MaxTokens:   p.cfg.maxTokens(req),
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &ExtractResponse{
		Content:    strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
