package model

import (
	"encoding/json"
	"fmt"
)

// Action is the next step the assistant declares for a turn.
type Action string

const (
	ActionProposeTour      Action = "propose_tour"
	ActionAskClarification Action = "ask_clarification"
	ActionHandoffHuman     Action = "handoff_human"
)

// Valid reports whether a is one of the declared actions.
func (a Action) Valid() bool {
	switch a {
	case ActionProposeTour, ActionAskClarification, ActionHandoffHuman:
		return true
	}
	return false
}

// BookingResponse is the structured outcome of a dialogue step.
type BookingResponse struct {
	Reply       string  `json:"reply"`
	Action      Action  `json:"action"`
	ProposeTime *string `json:"propose_time"`
}

// ParseBookingResponse decodes a structured completion. Unknown fields, a
// missing reply and an undeclared action are all rejected. An absent action
// falls back to ask_clarification.
func ParseBookingResponse(raw string) (*BookingResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode booking response: %w", err)
	}
	for k := range fields {
		switch k {
		case "reply", "action", "propose_time":
		default:
			return nil, fmt.Errorf("unexpected field %q", k)
		}
	}
	if _, ok := fields["reply"]; !ok {
		return nil, fmt.Errorf("missing field %q", "reply")
	}

	var resp BookingResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode booking response: %w", err)
	}
	if resp.Action == "" {
		resp.Action = ActionAskClarification
	}
	if !resp.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", resp.Action)
	}
	return &resp, nil
}

// BookingResponseSchema is the JSON schema a final structured completion
// must conform to.
var BookingResponseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "reply": {"type": "string"},
    "action": {
      "type": "string",
      "enum": ["propose_tour", "ask_clarification", "handoff_human"]
    },
    "propose_time": {"type": ["string", "null"]}
  },
  "required": ["reply", "action", "propose_time"],
  "additionalProperties": false
}`)
