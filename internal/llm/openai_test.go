package llm

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOpenAIRequestWithTools(t *testing.T) {
	req := &CompletionRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "2 bedrooms?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "check_availability", Arguments: `{"bedrooms":2}`}}},
			{Role: RoleTool, ToolCallID: "call_1", Name: "check_availability", Content: `{"success":true}`},
		},
		MaxTokens: 150,
		Tools: []Tool{{
			Name:        "check_availability",
			Description: "desc",
			Parameters:  json.RawMessage(`{"type":"object"}`),
			Strict:      true,
		}},
	}

	out := buildOpenAIRequest(req)

	assert.Equal(t, defaultOpenAIModel, out.Model)
	assert.Equal(t, 150, out.MaxTokens)
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), out.Temperature)
	assert.Equal(t, ToolChoiceAuto, out.ToolChoice)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, out.Tools[0].Type)
	assert.True(t, out.Tools[0].Function.Strict)

	require.Len(t, out.Messages, 4)
	require.Len(t, out.Messages[2].ToolCalls, 1)
	assert.Equal(t, "check_availability", out.Messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "call_1", out.Messages[3].ToolCallID)
	assert.Nil(t, out.ResponseFormat)
}

func TestBuildOpenAIRequestWithSchema(t *testing.T) {
	out := buildOpenAIRequest(&CompletionRequest{
		Model:       "gpt-4o",
		Temperature: 0.5,
		Messages:    []ChatMessage{{Role: RoleUser, Content: "hi"}},
		ResponseSchema: &ResponseSchema{
			Name:   "booking_response",
			Schema: json.RawMessage(`{"type":"object"}`),
			Strict: true,
		},
	})

	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, float32(0.5), out.Temperature)
	assert.Nil(t, out.ToolChoice)
	require.NotNil(t, out.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, out.ResponseFormat.Type)
	assert.Equal(t, "booking_response", out.ResponseFormat.JSONSchema.Name)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ProviderOpenAI, Options{})
	assert.Error(t, err)
	_, err = NewClient(ProviderAnthropic, Options{})
	assert.Error(t, err)
	_, err = NewClient("mystery", Options{APIKey: "k"})
	assert.Error(t, err)
}
