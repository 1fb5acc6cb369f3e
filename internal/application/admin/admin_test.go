package admin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/storage"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	t         *testing.T
	ctx       context.Context
	users     *persistence.GormUserRepository
	subs      *persistence.GormSubAccountRepository
	levels    *persistence.GormLevelRepository
	malls     *persistence.GormMallRepository
	stores    *persistence.GormStoreRepository
	admins    *persistence.GormAdminRepository
	blacklist *auth.InMemoryTokenBlacklist
	files     *storage.LocalObjectStorage
	userSvc   *UserService
	levelSvc  *LevelService
	mallSvc   *MallService
	pluginSvc *PluginService
	adminSvc  *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()

	newCache := func() *cache.QueryCache {
		c, err := cache.NewQueryCache(cache.Config{TTL: time.Minute, MaxEntries: 100, KeyPrefix: "test"})
		require.NoError(t, err)
		t.Cleanup(c.Close)
		return c
	}
	files, err := storage.NewLocalObjectStorage(t.TempDir(), "http://files.test/uploads")
	require.NoError(t, err)

	e := &testEnv{
		t:         t,
		ctx:       context.Background(),
		users:     persistence.NewGormUserRepository(db),
		subs:      persistence.NewGormSubAccountRepository(db),
		levels:    persistence.NewGormLevelRepository(db),
		malls:     persistence.NewGormMallRepository(db),
		stores:    persistence.NewGormStoreRepository(db),
		admins:    persistence.NewGormAdminRepository(db),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		files:     files,
	}
	e.userSvc = NewUserService(e.users, e.subs, e.stores, e.levels, e.blacklist, newCache(), newCache(), time.Hour, logger)
	e.levelSvc = NewLevelService(e.levels, logger)
	e.mallSvc = NewMallService(e.malls, logger)
	e.pluginSvc = NewPluginService(persistence.NewGormPluginRepository(db), files, 1024, logger)
	e.adminSvc = NewAdminService(e.admins, logger)
	return e
}

func (e *testEnv) user(name string) *account.User {
	e.t.Helper()
	u, err := account.NewUser(name, "password123", "", "")
	require.NoError(e.t, err)
	require.NoError(e.t, e.users.Create(e.ctx, u))
	return u
}

func (e *testEnv) bind(u *account.User, m *mall.Mall, ext string) *mall.Store {
	e.t.Helper()
	s, err := mall.NewStore(u.ID, m, "Store "+ext, ext)
	require.NoError(e.t, err)
	require.NoError(e.t, e.stores.BindWithQuota(e.ctx, s, 100))
	return s
}

func levelInput(code string, stores int, isDefault bool) membership.LevelInput {
	return membership.LevelInput{
		Code: code, Name: strings.ToUpper(code), StoreQuota: stores, SubAccountQuota: 1,
		DurationDays: 30, IsDefault: isDefault, Enabled: true,
	}
}

func TestUserService_SetStatusRevokesTokens(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("alice")
	sub, err := account.NewSubAccount(u.ID, "ops", "password123", "")
	require.NoError(t, err)
	require.NoError(t, e.subs.Create(e.ctx, sub))

	issued := time.Now().Add(-time.Minute)
	info, err := e.userSvc.SetStatus(e.ctx, u.ID, account.StatusDisabled)
	require.NoError(t, err)
	assert.Equal(t, account.StatusDisabled, info.Status)

	for _, id := range []uuid.UUID{u.ID, sub.ID} {
		revoked, err := e.blacklist.IsUserTokenInvalidated(e.ctx, id.String(), issued)
		require.NoError(t, err)
		assert.True(t, revoked)
	}

	_, err = e.userSvc.SetStatus(e.ctx, u.ID, "archived")
	assert.Error(t, err)

	info, err = e.userSvc.SetStatus(e.ctx, u.ID, account.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, info.Status)
}

func TestUserService_ResetPassword(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("alice")

	assert.Error(t, e.userSvc.ResetPassword(e.ctx, u.ID, "short"))
	require.NoError(t, e.userSvc.ResetPassword(e.ctx, u.ID, "new-password-1"))

	reloaded, err := e.users.FindByID(e.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CheckPassword("new-password-1"))
	assert.False(t, reloaded.CheckPassword("password123"))

	revoked, err := e.blacklist.IsUserTokenInvalidated(e.ctx, u.ID.String(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, e.userSvc.ResetPassword(e.ctx, uuid.New(), "new-password-1"), shared.ErrNotFound)
}

func TestUserService_SetMembership(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.levelSvc.Create(e.ctx, levelInput("free", 1, true))
	require.NoError(t, err)
	pro, err := e.levelSvc.Create(e.ctx, levelInput("pro", 3, false))
	require.NoError(t, err)

	u := e.user("alice")
	m, err := mall.NewMall("shopee-my", "Shopee MY", "shopee", "MY", "MYR")
	require.NoError(t, err)
	require.NoError(t, e.malls.Create(e.ctx, m))
	for _, ext := range []string{"1", "2", "3"} {
		e.bind(u, m, ext)
	}

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	e.userSvc.now = func() time.Time { return now }

	t.Run("requires exactly one of expiry and extension", func(t *testing.T) {
		_, err := e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: pro.ID})
		assert.ErrorIs(t, err, ErrMembershipInput)
		exp := now.AddDate(0, 1, 0)
		_, err = e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: pro.ID, ExpiresAt: &exp, ExtendDays: 3})
		assert.ErrorIs(t, err, ErrMembershipInput)
	})

	t.Run("grant keeps every store active", func(t *testing.T) {
		detail, err := e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: pro.ID, ExtendDays: 30})
		require.NoError(t, err)
		assert.Equal(t, "pro", detail.LevelCode)
		assert.Equal(t, int64(3), detail.StoreCount)
		require.NotNil(t, detail.MembershipExpiresAt)
		assert.True(t, now.AddDate(0, 0, 30).Equal(*detail.MembershipExpiresAt))
	})

	t.Run("extension adds to an active grant", func(t *testing.T) {
		detail, err := e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: pro.ID, ExtendDays: 10})
		require.NoError(t, err)
		assert.True(t, now.AddDate(0, 0, 40).Equal(*detail.MembershipExpiresAt))
	})

	t.Run("past expiry falls back to the default quota", func(t *testing.T) {
		past := now.Add(-time.Hour)
		_, err := e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: pro.ID, ExpiresAt: &past})
		require.Error(t, err)

		e.userSvc.now = func() time.Time { return now.AddDate(0, 3, 0) }
		soon := now.AddDate(0, 3, 1)
		free, err := e.levels.FindDefault(e.ctx)
		require.NoError(t, err)
		_, err = e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: free.ID, ExpiresAt: &soon})
		require.NoError(t, err)

		stores, _, err := e.stores.List(e.ctx, mall.Condition{OwnerID: u.ID}, shared.Pagination{})
		require.NoError(t, err)
		require.Len(t, stores, 3)
		assert.Equal(t, mall.StoreStatusActive, stores[0].Status)
		assert.Equal(t, mall.StoreStatusExpired, stores[1].Status)
		assert.Equal(t, mall.StoreStatusExpired, stores[2].Status)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := e.userSvc.SetMembership(e.ctx, u.ID, SetMembershipInput{LevelID: uuid.New(), ExtendDays: 1})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestUserService_ListAndGet(t *testing.T) {
	e := newTestEnv(t)
	u := e.user("alice")
	e.user("bob")

	page, err := e.userSvc.List(e.ctx, account.UserFilter{Keyword: "ali"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, u.ID, page.Items[0].ID)

	page, err = e.userSvc.List(e.ctx, account.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	detail, err := e.userSvc.Get(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail.StoreCount)
	assert.Empty(t, detail.LevelCode)
}

func TestLevelService(t *testing.T) {
	e := newTestEnv(t)
	free, err := e.levelSvc.Create(e.ctx, levelInput("free", 1, true))
	require.NoError(t, err)
	pro, err := e.levelSvc.Create(e.ctx, levelInput("pro", 5, false))
	require.NoError(t, err)

	_, err = e.levelSvc.Create(e.ctx, levelInput("PRO", 5, false))
	assert.ErrorIs(t, err, ErrLevelCode)

	assert.ErrorIs(t, e.levelSvc.Delete(e.ctx, free.ID), ErrDefaultLevel)

	_, err = e.levelSvc.Update(e.ctx, free.ID, levelInput("free", 2, false))
	assert.Error(t, err, "default flag moves by promoting another level")

	u := e.user("alice")
	require.NoError(t, u.GrantMembership(pro.ID, time.Now().Add(time.Hour)))
	require.NoError(t, e.users.Update(e.ctx, u))
	assert.ErrorIs(t, e.levelSvc.Delete(e.ctx, pro.ID), ErrLevelInUse)

	updated, err := e.levelSvc.Update(e.ctx, pro.ID, levelInput("ignored", 8, true))
	require.NoError(t, err)
	assert.Equal(t, "pro", updated.Code)
	assert.Equal(t, 8, updated.StoreQuota)

	levels, err := e.levelSvc.List(e.ctx)
	require.NoError(t, err)
	defaults := 0
	for _, l := range levels {
		if l.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	assert.NoError(t, e.levelSvc.Delete(e.ctx, free.ID))
}

func TestMallService(t *testing.T) {
	e := newTestEnv(t)
	disabled := false
	m, err := e.mallSvc.Create(e.ctx, MallInput{Code: "lazada-th", Name: "Lazada TH", Platform: "lazada", Region: "TH", Currency: "thb", Enabled: &disabled})
	require.NoError(t, err)
	assert.False(t, m.Enabled)
	assert.Equal(t, "THB", m.Currency)

	_, err = e.mallSvc.Create(e.ctx, MallInput{Code: "lazada-th", Name: "Again", Platform: "lazada", Region: "TH", Currency: "THB"})
	assert.ErrorIs(t, err, ErrMallCode)

	enabled := true
	m, err = e.mallSvc.Update(e.ctx, m.ID, MallInput{Name: "Lazada Thailand", Platform: "lazada", Region: "TH", Currency: "THB", Sort: 2, Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, m.Enabled)
	assert.Equal(t, "Lazada Thailand", m.Name)

	malls, err := e.mallSvc.List(e.ctx)
	require.NoError(t, err)
	assert.Len(t, malls, 1)
}

func TestPluginService(t *testing.T) {
	e := newTestEnv(t)
	p, err := e.pluginSvc.Create(e.ctx, "shopee-helper", plugin.Info{Name: "Shopee helper", Version: "1.0.0"})
	require.NoError(t, err)

	_, err = e.pluginSvc.Create(e.ctx, "shopee-helper", plugin.Info{Name: "Dup", Version: "1.0.0"})
	assert.ErrorIs(t, err, ErrPluginCode)

	_, err = e.pluginSvc.Publish(e.ctx, p.ID)
	assert.Error(t, err, "publishing needs a package")

	t.Run("package size limits", func(t *testing.T) {
		_, err := e.pluginSvc.UploadPackage(e.ctx, p.ID, strings.NewReader(""), 0)
		assert.Error(t, err)
		_, err = e.pluginSvc.UploadPackage(e.ctx, p.ID, strings.NewReader(strings.Repeat("x", 2048)), 2048)
		assert.Error(t, err)
	})

	content := "PK\x03\x04 plugin"
	p, err = e.pluginSvc.UploadPackage(e.ctx, p.ID, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/uploads/plugins/shopee-helper/1.0.0.zip", p.DownloadURL)
	data, err := os.ReadFile(filepath.Join(e.files.Dir(), "plugins", "shopee-helper", "1.0.0.zip"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	published, err := e.pluginSvc.ListPublished(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, published)

	p, err = e.pluginSvc.Publish(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plugin.StatusPublished, p.Status)

	published, err = e.pluginSvc.ListPublished(e.ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)

	t.Run("new version replaces the old package", func(t *testing.T) {
		_, err := e.pluginSvc.Update(e.ctx, p.ID, plugin.Info{Name: "Shopee helper", Version: "1.1.0"})
		require.NoError(t, err)
		_, err = e.pluginSvc.UploadPackage(e.ctx, p.ID, strings.NewReader(content), int64(len(content)))
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(e.files.Dir(), "plugins", "shopee-helper", "1.0.0.zip"))
		assert.True(t, os.IsNotExist(err))
	})

	p, err = e.pluginSvc.TakeOffline(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plugin.StatusOffline, p.Status)

	all, err := e.pluginSvc.List(e.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, e.pluginSvc.Delete(e.ctx, p.ID))
	_, err = os.Stat(filepath.Join(e.files.Dir(), "plugins", "shopee-helper", "1.1.0.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestAdminService(t *testing.T) {
	e := newTestEnv(t)

	created, err := e.adminSvc.Bootstrap(e.ctx, "", "password123")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = e.adminSvc.Bootstrap(e.ctx, "root", "password123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.adminSvc.Bootstrap(e.ctx, "other", "password123")
	require.NoError(t, err)
	assert.False(t, created, "bootstrap runs only on an empty table")

	root, err := e.admins.FindByUsername(e.ctx, "root")
	require.NoError(t, err)
	super := account.AdminPrincipal(root)

	op, err := e.adminSvc.Create(e.ctx, super, "ops", "password123", account.AdminRoleOperator)
	require.NoError(t, err)
	assert.Equal(t, account.AdminRoleOperator, op.Role)

	_, err = e.adminSvc.Create(e.ctx, super, "OPS", "password123", account.AdminRoleOperator)
	assert.ErrorIs(t, err, ErrAdminTaken)

	operator := &account.Principal{AccountType: account.TypeAdmin, AccountID: op.ID, AdminRole: account.AdminRoleOperator}
	_, err = e.adminSvc.Create(e.ctx, operator, "x1", "password123", account.AdminRoleOperator)
	assert.ErrorIs(t, err, ErrSuperOnly)
	_, err = e.adminSvc.List(e.ctx, operator)
	assert.ErrorIs(t, err, ErrSuperOnly)

	admins, err := e.adminSvc.List(e.ctx, super)
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}
