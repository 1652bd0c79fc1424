package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want error
	}{
		{"nil", nil, ErrMissingMessage},
		{"user", &Message{Role: RoleUser, Content: "hi", Step: StepInitial}, nil},
		{"assistant no step", &Message{Role: RoleAssistant, Content: "hello"}, nil},
		{"system role", &Message{Role: RoleSystem, Content: "obey"}, ErrInvalidRole},
		{"tool role", &Message{Role: RoleTool, Content: "{}"}, ErrInvalidRole},
		{"blank content", &Message{Role: RoleUser, Content: "  \n"}, ErrEmptyContent},
		{"bad step", &Message{Role: RoleUser, Content: "hi", Step: "final"}, ErrInvalidStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseBookingResponse(t *testing.T) {
	resp, err := ParseBookingResponse(`{"reply":"Tour tomorrow?","action":"propose_tour","propose_time":"2025-06-11T11:00:00"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionProposeTour, resp.Action)
	require.NotNil(t, resp.ProposeTime)
	assert.Equal(t, "2025-06-11T11:00:00", *resp.ProposeTime)

	resp, err = ParseBookingResponse(`{"reply":"How many bedrooms?","action":"","propose_time":null}`)
	require.NoError(t, err)
	assert.Equal(t, ActionAskClarification, resp.Action)
	assert.Nil(t, resp.ProposeTime)

	for _, raw := range []string{
		``,
		`not json`,
		`{"action":"handoff_human","propose_time":null}`,
		`{"reply":"x","action":"cancel","propose_time":null}`,
		`{"reply":"x","action":"handoff_human","propose_time":null,"confidence":0.9}`,
		`{"reply":7,"action":"handoff_human"}`,
	} {
		_, err := ParseBookingResponse(raw)
		assert.Error(t, err, raw)
	}
}

func TestActionValid(t *testing.T) {
	assert.True(t, ActionHandoffHuman.Valid())
	assert.True(t, ActionProposeTour.Valid())
	assert.True(t, ActionAskClarification.Valid())
	assert.False(t, Action("schedule").Valid())
	assert.False(t, Action("").Valid())
}

func TestMergePreferences(t *testing.T) {
	u := &User{}
	assert.False(t, u.MergePreferences(nil))

	assert.True(t, u.MergePreferences(map[string]any{"bedrooms": float64(2), "move_in": "2025-07-01"}))
	assert.False(t, u.MergePreferences(map[string]any{"bedrooms": float64(2)}))

	assert.True(t, u.MergePreferences(map[string]any{"bedrooms": float64(3), "pets": "cat"}))
	assert.Equal(t, map[string]any{
		"bedrooms": float64(3),
		"move_in":  "2025-07-01",
		"pets":     "cat",
	}, u.Preferences)

	// nested values are always treated as changed
	assert.True(t, u.MergePreferences(map[string]any{"amenities": []any{"pool"}}))
}
