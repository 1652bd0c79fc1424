package model

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxMessageLength = 4000
	maxNameLength    = 128
	maxEmailLength   = 254
)

var (
	emailPattern       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	communityIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message cannot be empty")
	}
	if len(content) > maxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateLeadName validates the lead's name.
func ValidateLeadName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("lead name is required")
	}
	if len(name) > maxNameLength {
		return errors.New("lead name exceeds maximum length")
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("lead email is required")
	}
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return errors.New("lead email is invalid")
	}
	return nil
}

// ValidateCommunityID validates an optional community identifier.
func ValidateCommunityID(id string) error {
	if id == "" {
		return nil
	}
	if !communityIDPattern.MatchString(id) {
		return errors.New("invalid community ID format")
	}
	return nil
}

// Validate checks an inbound chat turn.
func (r *ReplyRequest) Validate() error {
	if r == nil {
		return errors.New("request body is required")
	}
	if err := ValidateMessageContent(r.Message); err != nil {
		return err
	}
	if err := ValidateLeadName(r.Lead.Name); err != nil {
		return err
	}
	if err := ValidateEmail(strings.TrimSpace(r.Lead.Email)); err != nil {
		return err
	}
	return ValidateCommunityID(r.CommunityID)
}
