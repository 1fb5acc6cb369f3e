package persistence

import (
	"testing"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLevelRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFixture(t, db)
	repo := NewGormLevelRepository(db)

	free, err := membership.NewLevel(membership.LevelInput{Code: "free", Name: "Free", StoreQuota: 1, IsDefault: true, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, repo.Create(f.ctx, free))

	pro, err := membership.NewLevel(membership.LevelInput{
		Code: "pro", Name: "Pro", StoreQuota: 10, SubAccountQuota: 5,
		Price: decimal.RequireFromString("99.90"), DurationDays: 30, Enabled: true, Sort: 1,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(f.ctx, pro))

	t.Run("default level", func(t *testing.T) {
		def, err := repo.FindDefault(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, free.ID, def.ID)
	})

	t.Run("a new default replaces the previous one", func(t *testing.T) {
		in := membership.LevelInput{Name: pro.Name, StoreQuota: 10, SubAccountQuota: 5, Price: pro.Price, DurationDays: 30, IsDefault: true, Enabled: true, Sort: 1}
		require.NoError(t, pro.Update(in))
		require.NoError(t, repo.Update(f.ctx, pro))

		def, err := repo.FindDefault(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, pro.ID, def.ID)

		old, err := repo.FindByID(f.ctx, free.ID)
		require.NoError(t, err)
		assert.False(t, old.IsDefault)
	})

	t.Run("in use once granted", func(t *testing.T) {
		inUse, err := repo.InUse(f.ctx, free.ID)
		require.NoError(t, err)
		assert.False(t, inUse)

		u := f.user("member")
		require.NoError(t, u.ExtendMembership(free.ID, 30, u.CreatedAt))
		require.NoError(t, f.users.Update(f.ctx, u))

		inUse, err = repo.InUse(f.ctx, free.ID)
		require.NoError(t, err)
		assert.True(t, inUse)
	})

	t.Run("list keeps sort order", func(t *testing.T) {
		levels, err := repo.List(f.ctx, true)
		require.NoError(t, err)
		require.Len(t, levels, 2)
		assert.Equal(t, "free", levels[0].Code)
		assert.True(t, decimal.RequireFromString("99.9").Equal(levels[1].Price))
	})

	t.Run("duplicate code", func(t *testing.T) {
		dup, err := membership.NewLevel(membership.LevelInput{Code: "pro", Name: "Again", Enabled: true})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(f.ctx, dup), shared.ErrAlreadyExists)
	})
}

func TestGormPluginRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFixture(t, db)
	repo := NewGormPluginRepository(db)

	p, err := plugin.New("order-sync", plugin.Info{Name: "Order Sync", Version: "1.0.0"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(f.ctx, p))

	require.NoError(t, p.AttachPackage("plugins/order-sync/1.0.0.zip", "https://cdn.example.com/order-sync.zip", 2048))
	require.NoError(t, p.Publish())
	require.NoError(t, repo.Update(f.ctx, p))

	published, err := repo.List(f.ctx, plugin.StatusPublished)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.EqualValues(t, 2048, published[0].PackageSize)

	drafts, err := repo.List(f.ctx, plugin.StatusDraft)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	require.NoError(t, repo.Delete(f.ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(f.ctx, p.ID), shared.ErrNotFound)
}

func TestGormMallRepository(t *testing.T) {
	f := newFixture(t, testutil.NewSQLiteDB(t))
	a := f.mall("shopee-my")
	b := f.mall("lazada-th")
	b.SetEnabled(false)
	require.NoError(t, f.malls.Update(f.ctx, b))

	enabled, err := f.malls.List(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, a.ID, enabled[0].ID)

	exists, err := f.malls.ExistsByCode(f.ctx, "lazada-th")
	require.NoError(t, err)
	assert.True(t, exists)
}
