package model

import (
	"time"
)

// EventType represents the kind of turn event.
type EventType string

const (
	EventTypeTurn    EventType = "turn"
	EventTypeHandoff EventType = "handoff"
	EventTypeError   EventType = "error"
)

// TurnEvent is emitted after a chat turn completes.
type TurnEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	CommunityID string    `json:"community_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Action      Action    `json:"action,omitempty"`
	ProposeTime *string   `json:"propose_time,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Sequence    uint64    `json:"sequence,omitempty"`
}
