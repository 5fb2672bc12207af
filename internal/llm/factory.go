package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/util"
)

// NewProvider builds the configured provider. An empty provider name returns
// (nil, nil): extraction is disabled and callers must handle that.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}

// ConfigFromModel converts the file/env configuration.
func ConfigFromModel(c model.LLMConfig, fema model.FEMAConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  fema.HTTPProxy,
		HTTPSProxy: fema.HTTPSProxy,
	}
}

func newHTTPClient(cfg Config, fallback time.Duration) *http.Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = fallback
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	return &http.Client{Timeout: timeout, Transport: transport}
}
