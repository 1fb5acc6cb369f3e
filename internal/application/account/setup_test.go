package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	t         *testing.T
	ctx       context.Context
	users     *persistence.GormUserRepository
	subs      *persistence.GormSubAccountRepository
	admins    *persistence.GormAdminRepository
	levels    *persistence.GormLevelRepository
	malls     *persistence.GormMallRepository
	stores    *persistence.GormStoreRepository
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	identity  *cache.QueryCache
	resolver  *IdentityResolver
	auth      *AuthService
	subSvc    *SubAccountService
	members   *MembershipService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()

	identity, err := cache.NewQueryCache(cache.Config{TTL: time.Minute, MaxEntries: 100, KeyPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(identity.Close)

	e := &testEnv{
		t:         t,
		ctx:       context.Background(),
		users:     persistence.NewGormUserRepository(db),
		subs:      persistence.NewGormSubAccountRepository(db),
		admins:    persistence.NewGormAdminRepository(db),
		levels:    persistence.NewGormLevelRepository(db),
		malls:     persistence.NewGormMallRepository(db),
		stores:    persistence.NewGormStoreRepository(db),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		identity:  identity,
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "test-secret-key-that-is-long-enough",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "zique-test",
			MaxRefreshCount:        3,
		}),
	}
	e.resolver = NewIdentityResolver(e.users, e.subs, e.admins, identity, e.blacklist, logger)
	e.auth = NewAuthService(e.users, e.subs, e.admins, e.levels, e.jwt, e.blacklist, e.resolver, nil, logger)
	e.subSvc = NewSubAccountService(e.subs, e.users, e.levels, e.stores, identity, e.blacklist, time.Hour, nil, logger)
	e.members = NewMembershipService(e.users, e.subs, e.levels, e.stores)
	return e
}

func (e *testEnv) level(code string, stores, subs int, isDefault bool) *membership.Level {
	e.t.Helper()
	l, err := membership.NewLevel(membership.LevelInput{
		Code:            code,
		Name:            code,
		StoreQuota:      stores,
		SubAccountQuota: subs,
		DurationDays:    30,
		IsDefault:       isDefault,
		Enabled:         true,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.levels.Create(e.ctx, l))
	return l
}

func (e *testEnv) register(username string) *account.User {
	e.t.Helper()
	info, err := e.auth.Register(e.ctx, RegisterInput{Username: username, Password: "password123"})
	require.NoError(e.t, err)
	u, err := e.users.FindByID(e.ctx, info.ID)
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) store(u *account.User, ext string) *mall.Store {
	e.t.Helper()
	m, err := mall.NewMall("mall-"+ext, "Mall "+ext, "shopee", "MY", "MYR")
	require.NoError(e.t, err)
	require.NoError(e.t, e.malls.Create(e.ctx, m))
	s, err := mall.NewStore(u.ID, m, "Store "+ext, ext)
	require.NoError(e.t, err)
	require.NoError(e.t, e.stores.BindWithQuota(e.ctx, s, 100))
	return s
}

// storesByStatus returns the one active and the one expired store of u
func (e *testEnv) storesByStatus(u *account.User) (active, expired uuid.UUID) {
	e.t.Helper()
	stores, _, err := e.stores.List(e.ctx, mall.Condition{OwnerID: u.ID}, shared.Pagination{Page: 1, PageSize: 10})
	require.NoError(e.t, err)
	for _, s := range stores {
		switch s.Status {
		case mall.StoreStatusActive:
			active = s.ID
		case mall.StoreStatusExpired:
			expired = s.ID
		}
	}
	require.NotEqual(e.t, uuid.Nil, active)
	require.NotEqual(e.t, uuid.Nil, expired)
	return active, expired
}

func (e *testEnv) principal(token string) (*account.Principal, error) {
	claims, err := e.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return e.resolver.Resolve(e.ctx, claims)
}

func ids(stores ...*mall.Store) []uuid.UUID {
	out := make([]uuid.UUID, len(stores))
	for i, s := range stores {
		out[i] = s.ID
	}
	return out
}
