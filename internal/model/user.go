package model

import (
	"time"
)

// User is the lead on whose behalf a conversation happens. Email is unique.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Preferences map[string]any `json:"preferences,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// MergePreferences shallow-merges updates into the user's preferences and
// reports whether anything changed. Keys in updates override existing keys;
// unrelated keys are kept.
func (u *User) MergePreferences(updates map[string]any) bool {
	if len(updates) == 0 {
		return false
	}
	if u.Preferences == nil {
		u.Preferences = make(map[string]any, len(updates))
	}
	changed := false
	for k, v := range updates {
		if old, ok := u.Preferences[k]; ok && equalScalar(old, v) {
			continue
		}
		u.Preferences[k] = v
		changed = true
	}
	return changed
}

func equalScalar(a, b any) bool {
	switch a.(type) {
	case string, bool, float64, int, int64, nil:
		return a == b
	}
	return false
}
