package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
)

type fakeStore struct {
	units   []model.Unit
	policy  model.PetPolicy
	err     error
	gotMove *string
	gotBeds int
}

func (f *fakeStore) AvailableUnits(_ context.Context, _ string, bedrooms int, moveIn *string) ([]model.Unit, error) {
	f.gotBeds = bedrooms
	f.gotMove = moveIn
	return f.units, f.err
}

func (f *fakeStore) UnitPricing(_ context.Context, _, unitCode string) (*model.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.units {
		if u.UnitCode == unitCode {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) PetPolicy(context.Context, string) (model.PetPolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.policy == nil {
		return nil, store.ErrNotFound
	}
	return f.policy, nil
}

func strp(s string) *string { return &s }

func decode(t *testing.T, res Result) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.JSON()), &out))
	return out
}

func TestDeclarations(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	decls := r.Declarations()
	require.Len(t, decls, 3)

	names := []string{decls[0].Name, decls[1].Name, decls[2].Name}
	assert.Equal(t, []string{CheckAvailability, GetPricing, CheckPetPolicy}, names)

	for _, d := range decls {
		assert.True(t, d.Strict)
		var schema struct {
			Properties           map[string]any `json:"properties"`
			Required             []string       `json:"required"`
			AdditionalProperties bool           `json:"additionalProperties"`
		}
		require.NoError(t, json.Unmarshal(d.Parameters, &schema), d.Name)
		assert.False(t, schema.AdditionalProperties)
		assert.Len(t, schema.Required, len(schema.Properties), "every parameter of %s is required", d.Name)
	}
}

func TestInvokeUnknownCapability(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	_, err := r.Invoke(context.Background(), "delete_everything", "{}")
	assert.ErrorIs(t, err, ErrUnknownCapability)
	assert.False(t, r.Has("delete_everything"))
}

func TestCheckAvailability(t *testing.T) {
	fs := &fakeStore{units: []model.Unit{
		{UnitCode: "B201", Bedrooms: 2, Bathrooms: 2, Rent: 1850, AvailabilityStatus: "available"},
		{UnitCode: "B202", Bedrooms: 2, Bathrooms: 2, Rent: 1895, AvailabilityStatus: "notice", AvailableAt: strp("2025-09-01")},
	}}
	r := NewRegistry(fs)

	res, err := r.Invoke(context.Background(), CheckAvailability, `{"community_id":"sunset-ridge","bedrooms":2,"move_in_date":null}`)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, fs.gotMove)
	assert.Equal(t, 2, fs.gotBeds)

	payload := decode(t, res)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(2), payload["count"])
	units := payload["units"].([]any)
	first := units[0].(map[string]any)
	assert.Equal(t, "B201", first["unit_code"])
	assert.NotContains(t, first, "rent")

	args, ok := res.Args.(AvailabilityArgs)
	require.True(t, ok)
	assert.Equal(t, "sunset-ridge", args.CommunityID)
}

func TestCheckAvailabilityEmptyIsSuccess(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	res, err := r.Invoke(context.Background(), CheckAvailability, `{"community_id":"sunset-ridge","bedrooms":3,"move_in_date":""}`)
	require.NoError(t, err)
	assert.True(t, res.Success)
	payload := decode(t, res)
	assert.Equal(t, float64(0), payload["count"])
	assert.Equal(t, []any{}, payload["units"])
}

func TestCapabilityFailuresAreData(t *testing.T) {
	r := NewRegistry(&fakeStore{err: errors.New("connection refused")})
	ctx := context.Background()

	res, err := r.Invoke(ctx, CheckAvailability, `{"community_id":"x","bedrooms":1,"move_in_date":null}`)
	require.NoError(t, err)
	assert.False(t, res.Success)
	payload := decode(t, res)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "Error retrieving units: connection refused", payload["error"])
	assert.Equal(t, []any{}, payload["units"])

	res, err = r.Invoke(ctx, GetPricing, `{"community_id":"x","unit_id":"A1","move_in_date":null}`)
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving pricing: connection refused", decode(t, res)["error"])

	res, err = r.Invoke(ctx, CheckPetPolicy, `{"community_id":"x","pet_type":"cat"}`)
	require.NoError(t, err)
	assert.Equal(t, "Error checking pet policy: connection refused", decode(t, res)["error"])
}

func TestMalformedArgumentsAreData(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	res, err := r.Invoke(context.Background(), GetPricing, `{"community_id":"x","unit":"A1"}`)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, decode(t, res)["error"], "Invalid arguments for get_pricing")

	res, err = r.Invoke(context.Background(), CheckAvailability, `not json`)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestMissingRequiredParameters(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		missing string
	}{
		{CheckAvailability, `{"community_id":"sunset-ridge","move_in_date":null}`, "bedrooms"},
		{CheckAvailability, `{"community_id":"sunset-ridge","bedrooms":2}`, "move_in_date"},
		{GetPricing, `{"community_id":"sunset-ridge","move_in_date":null}`, "unit_id"},
		{CheckPetPolicy, `{"community_id":"sunset-ridge"}`, "pet_type"},
		{CheckPetPolicy, `null`, "community_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.missing, func(t *testing.T) {
			fs := &fakeStore{gotBeds: -1}
			r := NewRegistry(fs)

			res, err := r.Invoke(context.Background(), tt.name, tt.args)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Contains(t, decode(t, res)["error"], "missing required parameter "+tt.missing)
			assert.Equal(t, -1, fs.gotBeds, "store must not be queried")
		})
	}
}

func TestExplicitNullSatisfiesRequired(t *testing.T) {
	fs := &fakeStore{}
	r := NewRegistry(fs)
	res, err := r.Invoke(context.Background(), CheckAvailability, `{"community_id":"sunset-ridge","bedrooms":0,"move_in_date":null}`)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, fs.gotBeds)
	assert.Nil(t, fs.gotMove)
}

func TestGetPricingNotFound(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	res, err := r.Invoke(context.Background(), GetPricing, `{"community_id":"sunset-ridge","unit_id":"Z999","move_in_date":null}`)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Unit 'Z999' not found in community 'sunset-ridge'", decode(t, res)["error"])
}

func TestPetPolicyFallsBackToDefault(t *testing.T) {
	r := NewRegistry(&fakeStore{policy: model.PetPolicy{
		"cat":     {Allowed: true, Fee: ptrf(50), Notes: strp("Indoor only")},
		"default": {Allowed: false, Notes: strp("Contact office for other pets")},
	}})
	ctx := context.Background()

	res, err := r.Invoke(ctx, CheckPetPolicy, `{"community_id":"sunset-ridge","pet_type":"Cat"}`)
	require.NoError(t, err)
	p := decode(t, res)
	assert.Equal(t, true, p["allowed"])
	assert.Equal(t, float64(50), p["fee"])
	assert.Equal(t, "Cat", p["pet_type"])

	res, err = r.Invoke(ctx, CheckPetPolicy, `{"community_id":"sunset-ridge","pet_type":"iguana"}`)
	require.NoError(t, err)
	p = decode(t, res)
	assert.Equal(t, false, p["allowed"])
	assert.Equal(t, "Contact office for other pets", p["notes"])
}

func TestPetPolicyWithoutDefault(t *testing.T) {
	r := NewRegistry(&fakeStore{policy: model.PetPolicy{"cat": {Allowed: true}}})
	res, err := r.Invoke(context.Background(), CheckPetPolicy, `{"community_id":"x","pet_type":"bird"}`)
	require.NoError(t, err)
	p := decode(t, res)
	assert.Equal(t, false, p["allowed"])
	assert.Equal(t, "No specific policy for bird. Contact office for details.", p["notes"])
}

func TestPetPolicyMissing(t *testing.T) {
	r := NewRegistry(&fakeStore{})
	res, err := r.Invoke(context.Background(), CheckPetPolicy, `{"community_id":"x","pet_type":"dog"}`)
	require.NoError(t, err)
	assert.Equal(t, "No pet policy found for this community", decode(t, res)["error"])
}

func TestRegistryAgainstSeededStore(t *testing.T) {
	s, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background()))

	r := NewRegistry(s)
	res, err := r.Invoke(context.Background(), GetPricing, `{"community_id":"sunset-ridge","unit_id":"B201","move_in_date":null}`)
	require.NoError(t, err)
	require.True(t, res.Success)
	p := decode(t, res)
	assert.Equal(t, float64(1850), p["rent"])
	assert.Equal(t, "Sunset Ridge Apartments", p["community_name"])
}

func ptrf(f float64) *float64 { return &f }
