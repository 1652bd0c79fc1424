// Package model defines the data structures shared by the leasing assistant.
package model

import (
	"errors"
	"strings"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Step tags the pipeline stage that produced a message.
type Step string

const (
	StepInitial   Step = "initial"
	StepContext   Step = "context"
	StepReasoning Step = "reasoning"
	StepResponse  Step = "response"
	StepFollowup  Step = "followup"
)

var (
	ErrInvalidRole    = errors.New("message role must be user or assistant")
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrMissingMessage = errors.New("message is required")
	ErrInvalidStep    = errors.New("unknown message step")
)

// Message is one immutable turn in a lead's conversation.
type Message struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`

	Role    Role   `json:"role"`
	Content string `json:"content"`
	Visible bool   `json:"visible"`
	Step    Step   `json:"step,omitempty"`

	CreatedAt time.Time `json:"created_date"`
}

// Validate checks the invariants a message must hold before it is stored.
func (m *Message) Validate() error {
	if m == nil {
		return ErrMissingMessage
	}
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	switch m.Step {
	case "", StepInitial, StepContext, StepReasoning, StepResponse, StepFollowup:
	default:
		return ErrInvalidStep
	}
	return nil
}

// Lead identifies the prospect sending a message.
type Lead struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReplyRequest is the inbound chat turn.
type ReplyRequest struct {
	Message     string         `json:"message"`
	CommunityID string         `json:"community_id,omitempty"`
	Lead        Lead           `json:"lead"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// ReplyResponse is the outcome of a chat turn.
type ReplyResponse struct {
	ID          string    `json:"id"`
	Reply       string    `json:"reply"`
	Action      Action    `json:"action"`
	ProposeTime *string   `json:"propose_time,omitempty"`
	CreatedDate time.Time `json:"created_date"`
	ParentID    string    `json:"parent_id"`
}

// HistoryResponse is the response for listing a lead's messages.
type HistoryResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}
