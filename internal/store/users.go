package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

const userColumns = `id, email, name, preferences, created_at, updated_at`

// CreateUser inserts a new user. A taken email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	prefs, err := marshalPreferences(u.Preferences)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.Name, prefs, formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// UpdateUser writes name, preferences and updated_at for an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	prefs, err := marshalPreferences(u.Preferences)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET name = ?, preferences = ?, updated_at = ? WHERE id = ?`),
		u.Name, prefs, formatTime(u.UpdatedAt), u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) queryUser(ctx context.Context, query string, arg string) (*model.User, error) {
	var (
		u                    model.User
		prefs                string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(&u.ID, &u.Email, &u.Name, &prefs, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if prefs != "" {
		if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
			return nil, fmt.Errorf("decoding preferences for user %s: %w", u.ID, err)
		}
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for user %s: %w", u.ID, err)
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for user %s: %w", u.ID, err)
	}
	return &u, nil
}

func marshalPreferences(p map[string]any) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding preferences: %w", err)
	}
	return string(b), nil
}
