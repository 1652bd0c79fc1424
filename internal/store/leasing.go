package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

const unitColumns = `u.unit_id, u.community_id, c.name, u.unit_code, u.bedrooms, u.bathrooms,
	u.rent, u.specials, u.availability_status, u.available_at`

// AvailableUnits lists units in a community with the given bedroom count that
// can be leased. Without a move-in date only units available now qualify; with
// one, units on notice that free up by that date qualify too. Results are
// ordered by rent, then unit code.
func (s *Store) AvailableUnits(ctx context.Context, communityID string, bedrooms int, moveInDate *string) ([]model.Unit, error) {
	conds := []string{"u.community_id = ?", "u.bedrooms = ?"}
	args := []any{communityID, bedrooms}
	if moveInDate != nil && *moveInDate != "" {
		conds = append(conds, "(u.availability_status = 'available' OR (u.availability_status = 'notice' AND u.available_at <= ?))")
		args = append(args, *moveInDate)
	} else {
		conds = append(conds, "u.availability_status = 'available'")
	}

	query := `SELECT ` + unitColumns + `
		FROM units u
		INNER JOIN communities c ON u.community_id = c.community_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY u.rent ASC, u.unit_code ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying available units: %w", err)
	}
	defer rows.Close()

	units := []model.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating units: %w", err)
	}
	return units, nil
}

// UnitPricing looks up a unit by its code within a community.
func (s *Store) UnitPricing(ctx context.Context, communityID, unitCode string) (*model.Unit, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+unitColumns+`
		FROM units u
		INNER JOIN communities c ON u.community_id = c.community_id
		WHERE u.unit_code = ? AND u.community_id = ?
		LIMIT 1`), unitCode, communityID)

	u, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// PetPolicy returns the community's pet rules keyed by lowercase pet type.
func (s *Store) PetPolicy(ctx context.Context, communityID string) (model.PetPolicy, error) {
	var rules string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT rules FROM community_policies
		WHERE community_id = ? AND policy_type = 'pet' LIMIT 1`), communityID).Scan(&rules)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying pet policy: %w", err)
	}

	var policy model.PetPolicy
	if err := json.Unmarshal([]byte(rules), &policy); err != nil {
		return nil, fmt.Errorf("decoding pet policy for %s: %w", communityID, err)
	}
	return policy, nil
}

// Communities lists every community.
func (s *Store) Communities(ctx context.Context) ([]model.Community, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT community_id, name FROM communities ORDER BY community_id`)
	if err != nil {
		return nil, fmt.Errorf("querying communities: %w", err)
	}
	defer rows.Close()

	var out []model.Community
	for rows.Next() {
		var c model.Community
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning community: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanUnit(row scanner) (*model.Unit, error) {
	var (
		u           model.Unit
		specials    sql.NullString
		availableAt sql.NullString
	)
	err := row.Scan(&u.ID, &u.CommunityID, &u.CommunityName, &u.UnitCode, &u.Bedrooms, &u.Bathrooms,
		&u.Rent, &specials, &u.AvailabilityStatus, &availableAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning unit: %w", err)
	}
	u.Specials = stringPtr(specials)
	u.AvailableAt = stringPtr(availableAt)
	return &u, nil
}
