// Package llm provides the completion-service boundary: a provider-neutral
// request/response shape with OpenAI and Anthropic implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Tool choice policies.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// ToolCall is a capability invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool declares a callable capability with a JSON-schema parameter object.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Strict      bool
}

// ResponseSchema asks for output conforming to a JSON schema.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
	Strict bool
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model          string
	Messages       []ChatMessage
	MaxTokens      int
	Temperature    float64
	Tools          []Tool
	ToolChoice     string
	ResponseSchema *ResponseSchema
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Options configures a provider client.
type Options struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey)
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts.APIKey, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider Provider) string {
	if provider == ProviderAnthropic {
		return defaultAnthropicModel
	}
	return defaultOpenAIModel
}
