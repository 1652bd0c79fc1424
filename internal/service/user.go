// Package service provides the turn pipeline and lead bookkeeping for the
// leasing assistant.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

// UserStore is the persistence UserService needs.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
}

// UserService resolves leads to durable identities.
type UserService struct {
	store  UserStore
	logger *logger.Logger
	now    func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(s UserStore, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{store: s, logger: log, now: time.Now}
}

// NormalizeEmail lowercases and trims an address so one lead maps to one user.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetOrCreate returns the user for email, creating it on first contact. A
// changed name is saved and prefs are shallow-merged into the stored
// preferences.
func (s *UserService) GetOrCreate(ctx context.Context, email, name string, prefs map[string]any) (*model.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		now := s.now().UTC()
		u = &model.User{
			ID:          uuid.Must(uuid.NewV7()).String(),
			Email:       email,
			Name:        name,
			Preferences: maps.Clone(prefs),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.store.CreateUser(ctx, u)
		if err == nil {
			s.logger.Info("user created", zap.String("user_id", u.ID))
			return u, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		// Lost a race with a concurrent first turn; use the winner's row.
		u, err = s.store.UserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	changed := u.MergePreferences(prefs)
	if name != "" && name != u.Name {
		u.Name = name
		changed = true
	}
	if changed {
		u.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}
	return u, nil
}

// Lookup returns the user for email or store.ErrNotFound.
func (s *UserService) Lookup(ctx context.Context, email string) (*model.User, error) {
	return s.store.UserByEmail(ctx, NormalizeEmail(email))
}
