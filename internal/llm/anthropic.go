package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-haiku-latest",
		"claude-sonnet-4-0",
		"claude-3-7-sonnet-latest",
	}
}

// Complete sends a completion request. A response schema is honoured by
// forcing a single tool whose input schema is the requested shape; the tool
// input then becomes the response content.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	params, err := buildAnthropicParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		Model:      string(resp.Model),
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if req.ResponseSchema != nil && block.Name == req.ResponseSchema.Name {
				out.Content = string(block.Input)
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	if out.Content == "" {
		out.Content = text.String()
	}
	return out, nil
}

func buildAnthropicParams(req *CompletionRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultAnthropicModel
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case RoleUser:
			params.Messages = appendBlocks(params.Messages, anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case RoleTool:
			params.Messages = appendBlocks(params.Messages, anthropic.MessageParamRoleUser,
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(orEmptyObject(tc.Arguments)), tc.Name))
			}
			if len(blocks) > 0 {
				params.Messages = appendBlocks(params.Messages, anthropic.MessageParamRoleAssistant, blocks...)
			}
		default:
			return params, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	for _, t := range req.Tools {
		tool, err := anthropicTool(t.Name, t.Description, t.Parameters)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, tool)
	}
	if len(req.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	if req.ResponseSchema != nil {
		tool, err := anthropicTool(req.ResponseSchema.Name, "Respond with the final structured answer.", req.ResponseSchema.Schema)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, tool)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.ResponseSchema.Name},
		}
	}

	return params, nil
}

// appendBlocks merges consecutive same-role turns, which the Messages API
// expects for grouped tool results.
func appendBlocks(msgs []anthropic.MessageParam, role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) []anthropic.MessageParam {
	if n := len(msgs); n > 0 && msgs[n-1].Role == role {
		msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
		return msgs
	}
	return append(msgs, anthropic.MessageParam{Role: role, Content: blocks})
}

func anthropicTool(name, description string, schema json.RawMessage) (anthropic.ToolUnionParam, error) {
	var parsed struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &parsed); err != nil {
			return anthropic.ToolUnionParam{}, fmt.Errorf("decoding schema for tool %s: %w", name, err)
		}
	}

	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: parsed.Properties,
				Required:   parsed.Required,
			},
		},
	}, nil
}

func orEmptyObject(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}
