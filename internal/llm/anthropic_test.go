package llm

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAnthropicParamsGroupsToolResults(t *testing.T) {
	params, err := buildAnthropicParams(&CompletionRequest{
		Model:     "gpt-4o-mini",
		MaxTokens: 150,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "a", Name: "check_availability", Arguments: `{"bedrooms":2}`},
				{ID: "b", Name: "check_pet_policy", Arguments: ""},
			}},
			{Role: RoleTool, ToolCallID: "a", Content: "{}"},
			{Role: RoleTool, ToolCallID: "b", Content: "{}"},
		},
		Tools: []Tool{{Name: "check_availability", Parameters: json.RawMessage(`{"type":"object","properties":{"bedrooms":{"type":"integer"}},"required":["bedrooms"]}`)}},
	})
	require.NoError(t, err)

	assert.Equal(t, anthropic.Model(defaultAnthropicModel), params.Model)
	assert.Equal(t, int64(150), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "sys", params.System[0].Text)

	require.Len(t, params.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[1].Role)
	assert.Len(t, params.Messages[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[2].Role)
	assert.Len(t, params.Messages[2].Content, 2)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, []string{"bedrooms"}, params.Tools[0].OfTool.InputSchema.Required)
	assert.NotNil(t, params.ToolChoice.OfAuto)
}

func TestBuildAnthropicParamsForcesSchemaTool(t *testing.T) {
	params, err := buildAnthropicParams(&CompletionRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
		ResponseSchema: &ResponseSchema{
			Name:   "booking_response",
			Schema: json.RawMessage(`{"type":"object","properties":{"reply":{"type":"string"}},"required":["reply"]}`),
		},
	})
	require.NoError(t, err)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "booking_response", params.Tools[0].OfTool.Name)
	require.NotNil(t, params.ToolChoice.OfTool)
	assert.Equal(t, "booking_response", params.ToolChoice.OfTool.Name)
}

func TestBuildAnthropicParamsRejectsUnknownRole(t *testing.T) {
	_, err := buildAnthropicParams(&CompletionRequest{Messages: []ChatMessage{{Role: "narrator", Content: "x"}}})
	assert.Error(t, err)
}
