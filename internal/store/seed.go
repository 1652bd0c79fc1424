package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

func ptr[T any](v T) *T { return &v }

var demoCommunities = []model.Community{
	{ID: "sunset-ridge", Name: "Sunset Ridge Apartments"},
	{ID: "downtown-lofts", Name: "Downtown Lofts"},
}

var demoUnits = []model.Unit{
	{ID: "sr-a101", CommunityID: "sunset-ridge", UnitCode: "A101", Bedrooms: 1, Bathrooms: 1, Rent: 1450, AvailabilityStatus: model.UnitAvailable},
	{ID: "sr-a102", CommunityID: "sunset-ridge", UnitCode: "A102", Bedrooms: 1, Bathrooms: 1, Rent: 1475, AvailabilityStatus: model.UnitNotice, AvailableAt: ptr("2025-09-15")},
	{ID: "sr-b201", CommunityID: "sunset-ridge", UnitCode: "B201", Bedrooms: 2, Bathrooms: 2, Rent: 1850, Specials: ptr("First month free on a 13-month lease"), AvailabilityStatus: model.UnitAvailable},
	{ID: "sr-b202", CommunityID: "sunset-ridge", UnitCode: "B202", Bedrooms: 2, Bathrooms: 2, Rent: 1895, AvailabilityStatus: model.UnitAvailable},
	{ID: "sr-c301", CommunityID: "sunset-ridge", UnitCode: "C301", Bedrooms: 3, Bathrooms: 2, Rent: 2400, AvailabilityStatus: model.UnitOccupied},
	{ID: "dl-l101", CommunityID: "downtown-lofts", UnitCode: "L101", Bedrooms: 0, Bathrooms: 1, Rent: 1300, AvailabilityStatus: model.UnitAvailable},
	{ID: "dl-l201", CommunityID: "downtown-lofts", UnitCode: "L201", Bedrooms: 1, Bathrooms: 1, Rent: 1650, AvailabilityStatus: model.UnitAvailable},
	{ID: "dl-l305", CommunityID: "downtown-lofts", UnitCode: "L305", Bedrooms: 2, Bathrooms: 2.5, Rent: 2300, AvailabilityStatus: model.UnitNotice, AvailableAt: ptr("2025-10-01")},
}

var demoPetPolicies = map[string]model.PetPolicy{
	"sunset-ridge": {
		"cat":     {Allowed: true, Fee: ptr(50.0), Deposit: ptr(200.0), Notes: ptr("Indoor cats only"), Restrictions: ptr("Maximum of 2 cats")},
		"dog":     {Allowed: true, Fee: ptr(75.0), Deposit: ptr(300.0), Notes: ptr("Breed restrictions apply"), Restrictions: ptr("Under 50 lbs")},
		"default": {Allowed: false, Notes: ptr("Contact office for other pets")},
	},
	"downtown-lofts": {
		"cat": {Allowed: true, Fee: ptr(40.0), Deposit: ptr(150.0)},
		"dog": {Allowed: false, Notes: ptr("No dogs in loft units")},
	},
}

// Seed loads the demo communities, units and pet policies. Rows that already
// exist are left untouched.
func (s *Store) Seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range demoCommunities {
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO communities (community_id, name) VALUES (?, ?)
			ON CONFLICT DO NOTHING`), c.ID, c.Name); err != nil {
			return fmt.Errorf("seeding community %s: %w", c.ID, err)
		}
	}

	for _, u := range demoUnits {
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO units
			(unit_id, community_id, unit_code, bedrooms, bathrooms, rent, specials, availability_status, available_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`),
			u.ID, u.CommunityID, u.UnitCode, u.Bedrooms, u.Bathrooms, u.Rent,
			nullString(u.Specials), u.AvailabilityStatus, nullString(u.AvailableAt),
		); err != nil {
			return fmt.Errorf("seeding unit %s: %w", u.UnitCode, err)
		}
	}

	for communityID, policy := range demoPetPolicies {
		rules, err := json.Marshal(policy)
		if err != nil {
			return fmt.Errorf("encoding pet policy for %s: %w", communityID, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO community_policies (community_id, policy_type, rules)
			VALUES (?, 'pet', ?)
			ON CONFLICT DO NOTHING`), communityID, string(rules)); err != nil {
			return fmt.Errorf("seeding pet policy for %s: %w", communityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}
