package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

// SaveMessage durably records msg. A set parent_id must reference an existing
// message; nothing is written otherwise.
func (s *Store) SaveMessage(ctx context.Context, msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if msg.ParentID != nil {
		var n int
		err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM messages WHERE id = ?"), *msg.ParentID).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking parent message: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("message %s: %w", *msg.ParentID, ErrParentNotFound)
		}
	}

	var step sql.NullString
	if msg.Step != "" {
		step = sql.NullString{String: string(msg.Step), Valid: true}
	}
	var userID sql.NullString
	if msg.UserID != "" {
		userID = sql.NullString{String: msg.UserID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO messages
		(id, user_id, role, content, visible, step, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		msg.ID, userID, string(msg.Role), msg.Content, msg.Visible, step, nullString(msg.ParentID), formatTime(msg.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("message %s: %w", msg.ID, ErrConflict)
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}
	return nil
}

// GetMessage loads a single message by id.
func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, user_id, role, content, visible, step, parent_id, created_at
		FROM messages WHERE id = ?`), id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return msg, err
}

// RecentMessages returns up to limit of the user's most recent messages,
// oldest first.
func (s *Store) RecentMessages(ctx context.Context, userID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, user_id, role, content, visible, step, parent_id, created_at
		FROM messages WHERE user_id = ?
		ORDER BY seq DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MessageUserIDs returns every user that owns at least one message.
func (s *Store) MessageUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM messages WHERE user_id IS NOT NULL ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying message owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning message owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*model.Message, error) {
	var (
		msg       model.Message
		role      string
		userID    sql.NullString
		step      sql.NullString
		parentID  sql.NullString
		createdAt string
	)
	if err := row.Scan(&msg.ID, &userID, &role, &msg.Content, &msg.Visible, &step, &parentID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for message %s: %w", msg.ID, err)
	}
	msg.Role = model.Role(role)
	msg.UserID = userID.String
	msg.Step = model.Step(step.String)
	msg.ParentID = stringPtr(parentID)
	msg.CreatedAt = t
	return &msg, nil
}
