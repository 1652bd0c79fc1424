package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() *ReplyRequest {
	return &ReplyRequest{
		Message:     "Do you have 2 bedrooms?",
		CommunityID: "sunset-ridge",
		Lead:        Lead{Name: "Jane", Email: "jane@example.com"},
	}
}

func TestReplyRequestValidate(t *testing.T) {
	assert.NoError(t, validRequest().Validate())

	var missing *ReplyRequest
	assert.Error(t, missing.Validate())

	tests := map[string]func(r *ReplyRequest){
		"empty message": func(r *ReplyRequest) { r.Message = "   " },
		"long message":  func(r *ReplyRequest) { r.Message = string(make([]byte, maxMessageLength+1)) },
		"missing name":  func(r *ReplyRequest) { r.Lead.Name = "" },
		"missing email": func(r *ReplyRequest) { r.Lead.Email = "" },
		"bad email":     func(r *ReplyRequest) { r.Lead.Email = "jane@example" },
		"spaced email":  func(r *ReplyRequest) { r.Lead.Email = "ja ne@example.com" },
		"bad community": func(r *ReplyRequest) { r.CommunityID = "Sunset Ridge!" },
		"invalid utf8":  func(r *ReplyRequest) { r.Message = "hi \xff" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := validRequest()
			mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestValidateCommunityIDOptional(t *testing.T) {
	assert.NoError(t, ValidateCommunityID(""))
	assert.NoError(t, ValidateCommunityID("downtown-lofts"))
}
