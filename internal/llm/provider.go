// Package llm talks to the language model that turns raw screen text into a
// beneficiary record payload.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is one LLM backend.
type Provider interface {
	// Name returns the provider name used in cache keys and reports.
	Name() string

	// Model returns the model requests are sent to.
	Model() string

	// Endpoint returns the URL requests are sent to, for rate limiting.
	Endpoint() string

	// Extract sends the extraction prompt and returns the raw response text.
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)

	// Ping checks that the backend is reachable and the credentials work.
	Ping(ctx context.Context) error
}

// ExtractRequest is the input to one extraction.
type ExtractRequest struct {
	// Text is the OCR or screen text of the beneficiary's pages.
	Text string

	// Prompt overrides BuildPrompt when set.
	Prompt string

	MaxTokens int
}

// ExtractResponse is the provider's raw answer. Content is expected to hold a
// JSON object but is not parsed here.
type ExtractResponse struct {
	Content    string
	Model      string
	TokensUsed int
}

// Config holds provider settings.
type Config struct {
	Provider  string // openai, anthropic, ollama, or "" for disabled
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const systemPrompt = "You are a Medicare OCR assistant. You return only valid JSON."

// recordFields lists the keys requested from the model, in prompt order.
var recordFields = []string{
	"full_name",
	"date_of_birth (MM/DD/YYYY)",
	"mbi (correct OCR errors like S->5, O->0, etc.)",
	"contract_code (just the most recent plan)",
	"pbp (that matches contract)",
	"plan_type",
	"part_a_date (MM/DD/YYYY)",
	"part_b_date (MM/DD/YYYY)",
	"part_b_status",
	"county",
	"state (two-letter code)",
	"recent_lis_levels (up to 3, oldest first, each with 'start_date' and 'level')",
	"recent_medicaid_levels (optional, up to 3 like LIS)",
	"recent_elections (oldest first, e.g. 'X0001' + PDP info)",
}

// BuildPrompt constructs the extraction prompt for the given screen text.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Your job is to clean this MARx and Medicaid text and return a clean JSON object with:\n")
	for _, f := range recordFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("If the text is not a Medicare beneficiary screen, return {\"error\": \"<reason>\"}.\n")
	b.WriteString("Text:\n```")
	b.WriteString(text)
	b.WriteString("```\nReturn only valid JSON.\n")
	return b.String()
}

func (c Config) maxTokens(req ExtractRequest) int {
	switch {
	case req.MaxTokens > 0:
		return req.MaxTokens
	case c.MaxTokens > 0:
		return c.MaxTokens
	default:
		return 1500
	}
}

func prompt(req ExtractRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Text)
}
