package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository(t *testing.T) {
	f := newFixture(t, testutil.NewSQLiteDB(t))

	u := f.user("Alice")

	t.Run("finds by normalized username", func(t *testing.T) {
		got, err := f.users.FindByUsername(f.ctx, "  ALICE ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.CheckPassword("password123"))
	})

	t.Run("duplicate username is already exists", func(t *testing.T) {
		dup, err := account.NewUser("alice", "password123", "", "")
		require.NoError(t, err)
		err = f.users.Create(f.ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("missing id is not found", func(t *testing.T) {
		_, err := f.users.FindByID(f.ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("update persists membership", func(t *testing.T) {
		level := uuid.New()
		expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
		require.NoError(t, u.GrantMembership(level, expires))
		require.NoError(t, f.users.Update(f.ctx, u))

		got, err := f.users.FindByID(f.ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.MembershipLevelID)
		assert.Equal(t, level, *got.MembershipLevelID)
		assert.True(t, expires.Equal(*got.MembershipExpiresAt))
	})

	t.Run("list filters by keyword and status", func(t *testing.T) {
		bob := f.user("bob")
		bob.Disable()
		require.NoError(t, f.users.Update(f.ctx, bob))

		users, total, err := f.users.List(f.ctx, account.UserFilter{Keyword: "bo"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)

		_, total, err = f.users.List(f.ctx, account.UserFilter{Status: account.StatusActive})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})
}

func TestGormUserRepository_ListMembershipExpired(t *testing.T) {
	f := newFixture(t, testutil.NewSQLiteDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	expired := f.user("expired")
	require.NoError(t, expired.GrantMembership(uuid.New(), now.Add(-time.Hour)))
	require.NoError(t, f.users.Update(f.ctx, expired))

	older := f.user("older")
	require.NoError(t, older.GrantMembership(uuid.New(), now.Add(-48*time.Hour)))
	require.NoError(t, f.users.Update(f.ctx, older))

	f.user("never")

	users, err := f.users.ListMembershipExpired(f.ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, expired.ID, users[0].ID)
}

func TestGormSubAccountRepository(t *testing.T) {
	f := newFixture(t, testutil.NewSQLiteDB(t))
	owner := f.user("owner")
	m := f.mall("shopee-my")
	s1 := f.store(owner, m, "one", "ext-1")
	s2 := f.store(owner, m, "two", "ext-2")

	sub := f.sub(owner, "helper", s1)

	t.Run("loads assignments", func(t *testing.T) {
		got, err := f.subs.FindByUsername(f.ctx, "HELPER")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{s1.ID}, got.StoreIDs)

		ids, err := f.subs.StoreIDs(f.ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{s1.ID}, ids)
	})

	t.Run("update replaces assignments", func(t *testing.T) {
		sub.AssignStores([]uuid.UUID{s2.ID})
		require.NoError(t, f.subs.Update(f.ctx, sub))

		got, err := f.subs.FindByID(f.ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{s2.ID}, got.StoreIDs)
	})

	t.Run("delete is scoped to the parent", func(t *testing.T) {
		stranger := f.user("stranger")
		err := f.subs.Delete(f.ctx, stranger.ID, sub.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		require.NoError(t, f.subs.Delete(f.ctx, owner.ID, sub.ID))
		count, err := f.subs.CountByParent(f.ctx, owner.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func TestGormAdminRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormAdminRepository(db)
	f := newFixture(t, db)

	a, err := account.NewAdmin("root", "password123", account.AdminRoleSuper)
	require.NoError(t, err)
	require.NoError(t, repo.Create(f.ctx, a))

	got, err := repo.FindByUsername(f.ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, account.AdminRoleSuper, got.Role)

	count, err := repo.Count(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	dup, err := account.NewAdmin("root", "password123", account.AdminRoleOperator)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(f.ctx, dup), shared.ErrAlreadyExists)
}
