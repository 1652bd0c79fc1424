package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background()))
	return s
}

func newUser(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	now := time.Now()
	u := &model.User{ID: uuid.NewString(), Email: email, Name: "Test Lead", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, s.migrate())
	require.NoError(t, s.Seed(ctx))

	communities, err := s.Communities(ctx)
	require.NoError(t, err)
	assert.Len(t, communities, 2)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	s := &Store{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	s.dialect = DialectSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("012_add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	_, err = parseMigrationVersion("init.sql")
	assert.Error(t, err)
}

func TestSaveAndLoadMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "lead@example.com")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userMsg := &model.Message{ID: uuid.NewString(), UserID: u.ID, Role: model.RoleUser, Content: "hi", Visible: true, Step: model.StepInitial, CreatedAt: base}
	require.NoError(t, s.SaveMessage(ctx, userMsg))

	parent := userMsg.ID
	reply := &model.Message{ID: uuid.NewString(), UserID: u.ID, Role: model.RoleAssistant, Content: "hello", Visible: true, ParentID: &parent, Step: model.StepResponse, CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.SaveMessage(ctx, reply))

	msgs, err := s.RecentMessages(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, userMsg.ID, msgs[0].ID)
	assert.Equal(t, reply.ID, msgs[1].ID)
	require.NotNil(t, msgs[1].ParentID)
	assert.Equal(t, userMsg.ID, *msgs[1].ParentID)
	assert.Equal(t, model.StepResponse, msgs[1].Step)
	assert.True(t, msgs[1].CreatedAt.Equal(base.Add(time.Second)))

	got, err := s.GetMessage(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	owners, err := s.MessageUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{u.ID}, owners)
}

func TestRecentMessagesKeepsNewestWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s, "window@example.com")

	var ids []string
	for i := 0; i < 5; i++ {
		m := &model.Message{ID: uuid.NewString(), UserID: u.ID, Role: model.RoleUser, Content: "m", Visible: i != 2, CreatedAt: time.Now()}
		require.NoError(t, s.SaveMessage(ctx, m))
		ids = append(ids, m.ID)
	}

	msgs, err := s.RecentMessages(ctx, u.ID, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, ids[2:], []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.False(t, msgs[0].Visible)
}

func TestSaveMessageRequiresExistingParent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	missing := uuid.NewString()
	err := s.SaveMessage(ctx, &model.Message{ID: uuid.NewString(), Role: model.RoleAssistant, Content: "x", ParentID: &missing, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = s.GetMessage(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveMessageValidates(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveMessage(context.Background(), &model.Message{ID: "x", Role: model.RoleUser, Content: ""})
	assert.ErrorIs(t, err, model.ErrEmptyContent)
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := newUser(t, s, "dup@example.com")

	dup := &model.User{ID: uuid.NewString(), Email: "dup@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrConflict)

	u.Name = "Renamed"
	u.Preferences = map[string]any{"bedrooms": float64(2), "move_in": "2025-09-01"}
	u.UpdatedAt = time.Now()
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.UserByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, float64(2), got.Preferences["bedrooms"])

	_, err = s.UserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
}

func TestAvailableUnits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	units, err := s.AvailableUnits(ctx, "sunset-ridge", 2, nil)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "B201", units[0].UnitCode)
	assert.Equal(t, "B202", units[1].UnitCode)
	assert.Equal(t, "Sunset Ridge Apartments", units[0].CommunityName)
	require.NotNil(t, units[0].Specials)

	units, err = s.AvailableUnits(ctx, "sunset-ridge", 1, nil)
	require.NoError(t, err)
	assert.Len(t, units, 1)

	late := "2025-12-01"
	units, err = s.AvailableUnits(ctx, "sunset-ridge", 1, &late)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	early := "2025-08-01"
	units, err = s.AvailableUnits(ctx, "sunset-ridge", 1, &early)
	require.NoError(t, err)
	assert.Len(t, units, 1)

	units, err = s.AvailableUnits(ctx, "sunset-ridge", 3, nil)
	require.NoError(t, err)
	assert.NotNil(t, units)
	assert.Empty(t, units)
}

func TestUnitPricing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.UnitPricing(ctx, "downtown-lofts", "L305")
	require.NoError(t, err)
	assert.Equal(t, 2300.0, u.Rent)
	assert.Equal(t, 2.5, u.Bathrooms)
	require.NotNil(t, u.AvailableAt)
	assert.Equal(t, "2025-10-01", *u.AvailableAt)

	_, err = s.UnitPricing(ctx, "sunset-ridge", "L305")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPetPolicy(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	policy, err := s.PetPolicy(ctx, "sunset-ridge")
	require.NoError(t, err)
	assert.True(t, policy["cat"].Allowed)
	assert.False(t, policy["default"].Allowed)

	_, err = s.PetPolicy(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}
