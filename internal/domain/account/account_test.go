package account

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("valid user is active with hashed password", func(t *testing.T) {
		u, err := NewUser("  Alice_01 ", "password123", "Alice@Example.com", " 123 ")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, "alice_01", u.Username)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, "123", u.Phone)
		assert.Equal(t, StatusActive, u.Status)
		assert.NotEqual(t, "password123", u.PasswordHash)
		assert.True(t, u.CheckPassword("password123"))
		assert.False(t, u.CheckPassword("wrong-password"))
	})

	t.Run("rejects bad usernames", func(t *testing.T) {
		for _, name := range []string{"ab", "has space", "semi;colon", ""} {
			_, err := NewUser(name, "password123", "", "")
			assert.ErrorIs(t, err, ErrInvalidUsername, name)
		}
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("alice", "short", "", "")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("rejects bad email", func(t *testing.T) {
		_, err := NewUser("alice", "password123", "not-an-email", "")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})
}

func TestUser_DisableEnable(t *testing.T) {
	u, err := NewUser("alice", "password123", "", "")
	require.NoError(t, err)

	u.Disable()
	assert.False(t, u.IsActive())
	u.Enable()
	assert.True(t, u.IsActive())
}

func TestUser_Membership(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	level := uuid.New()

	t.Run("no grant has no active level", func(t *testing.T) {
		u := &User{}
		assert.Nil(t, u.ActiveMembershipLevel(now))
	})

	t.Run("extend from scratch starts now", func(t *testing.T) {
		u := &User{}
		require.NoError(t, u.ExtendMembership(level, 30, now))
		assert.Equal(t, now.AddDate(0, 0, 30), *u.MembershipExpiresAt)
		assert.Equal(t, level, *u.ActiveMembershipLevel(now))
	})

	t.Run("extend active grant stacks on expiry", func(t *testing.T) {
		u := &User{}
		require.NoError(t, u.GrantMembership(level, now.AddDate(0, 0, 10)))
		require.NoError(t, u.ExtendMembership(level, 30, now))
		assert.Equal(t, now.AddDate(0, 0, 40), *u.MembershipExpiresAt)
	})

	t.Run("extend with a different level starts now", func(t *testing.T) {
		u := &User{}
		require.NoError(t, u.GrantMembership(uuid.New(), now.AddDate(0, 0, 10)))
		require.NoError(t, u.ExtendMembership(level, 30, now))
		assert.Equal(t, now.AddDate(0, 0, 30), *u.MembershipExpiresAt)
	})

	t.Run("expired grant is inactive", func(t *testing.T) {
		u := &User{}
		require.NoError(t, u.GrantMembership(level, now.Add(-time.Second)))
		assert.Nil(t, u.ActiveMembershipLevel(now))
	})

	t.Run("invalid inputs", func(t *testing.T) {
		u := &User{}
		assert.Error(t, u.GrantMembership(uuid.Nil, now))
		assert.Error(t, u.ExtendMembership(level, 0, now))
	})
}

func TestSubAccount(t *testing.T) {
	parent := uuid.New()
	s1, s2 := uuid.New(), uuid.New()

	sub, err := NewSubAccount(parent, "ops-1", "password123", " Ops ")
	require.NoError(t, err)
	assert.Equal(t, "Ops", sub.Nickname)
	assert.Empty(t, sub.StoreIDs)

	sub.AssignStores([]uuid.UUID{s1, s1, uuid.Nil, s2})
	assert.Equal(t, []uuid.UUID{s1, s2}, sub.StoreIDs)
	assert.True(t, sub.CanSee(s1))

	assert.True(t, sub.RevokeStore(s1))
	assert.False(t, sub.RevokeStore(s1))
	assert.False(t, sub.CanSee(s1))
	assert.True(t, sub.CanSee(s2))

	require.NoError(t, sub.SetStatus(StatusDisabled))
	assert.False(t, sub.IsActive())
	assert.Error(t, sub.SetStatus("archived"))

	_, err = NewSubAccount(uuid.Nil, "ops-2", "password123", "")
	assert.Error(t, err)
}

func TestNewAdmin(t *testing.T) {
	a, err := NewAdmin("root", "password123", AdminRoleSuper)
	require.NoError(t, err)
	assert.True(t, a.IsActive())

	_, err = NewAdmin("root", "password123", "owner")
	assert.Error(t, err)
}

func TestPrincipal_CanAccessStore(t *testing.T) {
	owner := uuid.New()
	visible, hidden := uuid.New(), uuid.New()

	main := MainPrincipal(&User{BaseEntity: shared.BaseEntity{ID: owner}})
	assert.True(t, main.CanAccessStore(owner, visible))
	assert.True(t, main.CanAccessStore(owner, hidden))
	assert.False(t, main.CanAccessStore(uuid.New(), visible), "other owners are never visible")

	sub := SubPrincipal(&SubAccount{
		BaseEntity: shared.BaseEntity{ID: uuid.New()},
		ParentID:   owner,
		StoreIDs:   []uuid.UUID{visible},
	})
	assert.True(t, sub.IsSub())
	assert.Equal(t, owner, sub.OwnerID)
	assert.True(t, sub.CanAccessStore(owner, visible))
	assert.False(t, sub.CanAccessStore(owner, hidden))

	admin := AdminPrincipal(&Admin{BaseEntity: shared.BaseEntity{ID: uuid.New()}, Role: AdminRoleOperator})
	assert.False(t, admin.CanAccessStore(owner, visible))
	assert.False(t, admin.IsSuperAdmin())
}

func TestSubPrincipal_CopiesStoreSet(t *testing.T) {
	s := &SubAccount{ParentID: uuid.New(), StoreIDs: []uuid.UUID{uuid.New()}}
	p := SubPrincipal(s)
	s.StoreIDs[0] = uuid.Nil
	assert.NotEqual(t, uuid.Nil, p.AllowedStoreIDs[0])
}

func TestErrorsMatchSharedCodes(t *testing.T) {
	assert.True(t, errors.Is(ErrBadCredentials, shared.ErrUnauthorized))
}
