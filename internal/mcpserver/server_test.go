package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/leasing-assistant/internal/store"
	"github.com/capitalize-ai/leasing-assistant/internal/tools"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background()))
	return New(tools.NewRegistry(s), nil)
}

func call(t *testing.T, s *Server, name string, args map[string]any) (*mcp.CallToolResult, map[string]any) {
	t.Helper()
	res, err := s.handle(name)(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return res, payload
}

func TestCheckAvailabilityTool(t *testing.T) {
	s := newServer(t)

	res, payload := call(t, s, tools.CheckAvailability, map[string]any{
		"community_id": "sunset-ridge",
		"bedrooms":     float64(2),
	})
	assert.False(t, res.IsError)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(2), payload["count"])
}

func TestGetPricingToolNotFound(t *testing.T) {
	s := newServer(t)

	res, payload := call(t, s, tools.GetPricing, map[string]any{
		"community_id": "sunset-ridge",
		"unit_id":      "Z999",
	})
	assert.True(t, res.IsError)
	assert.Equal(t, false, payload["success"])
	assert.Contains(t, payload["error"], "Z999")
}

func TestPetPolicyToolFallsBackToDefault(t *testing.T) {
	s := newServer(t)

	res, payload := call(t, s, tools.CheckPetPolicy, map[string]any{
		"community_id": "sunset-ridge",
		"pet_type":     "bird",
	})
	assert.False(t, res.IsError)
	assert.Equal(t, false, payload["allowed"])
	assert.Equal(t, "Contact office for other pets", payload["notes"])
}

func TestUnexpectedArgumentsAreReported(t *testing.T) {
	s := newServer(t)

	res, payload := call(t, s, tools.CheckPetPolicy, map[string]any{
		"community_id": "sunset-ridge",
		"pet_type":     "cat",
		"drop_table":   true,
	})
	assert.True(t, res.IsError)
	assert.Equal(t, false, payload["success"])
}

func TestHandlerIsMountable(t *testing.T) {
	assert.NotNil(t, newServer(t).Handler())
}
