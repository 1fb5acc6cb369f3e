package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The suite shares one container; subtests clean the data tables first.
func TestMySQL(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()

	users := persistence.NewGormUserRepository(tdb.DB)
	subs := persistence.NewGormSubAccountRepository(tdb.DB)
	levels := persistence.NewGormLevelRepository(tdb.DB)
	malls := persistence.NewGormMallRepository(tdb.DB)
	stores := persistence.NewGormStoreRepository(tdb.DB)
	records := persistence.NewGormSettlementRepository(tdb.DB)

	newUser := func(t *testing.T, name string) *account.User {
		t.Helper()
		u, err := account.NewUser(name, "password123", "", "")
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, u))
		return u
	}
	newMall := func(t *testing.T) *mall.Mall {
		t.Helper()
		m, err := mall.NewMall("it-"+uuid.NewString()[:8], "Integration Mall", "shopee", "MY", "MYR")
		require.NoError(t, err)
		require.NoError(t, malls.Create(ctx, m))
		return m
	}

	t.Run("migrations seed the catalog", func(t *testing.T) {
		version, dirty, err := tdb.Migrator().Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.NotZero(t, version)

		def, err := levels.FindDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, "free", def.Code)
		assert.Equal(t, 1, def.StoreQuota)
	})

	t.Run("concurrent binds never exceed the quota", func(t *testing.T) {
		tdb.CleanTables()
		owner := newUser(t, "racer")
		m := newMall(t)

		const attempts = 8
		const limit = 3
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			bound    int
			rejected int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s, err := mall.NewStore(owner.ID, m, fmt.Sprintf("Store %d", i), fmt.Sprintf("ext-%d", i))
				if !assert.NoError(t, err) {
					return
				}
				err = stores.BindWithQuota(ctx, s, limit)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					bound++
				case errors.Is(err, shared.ErrQuotaExceeded):
					rejected++
				default:
					t.Errorf("unexpected bind error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, limit, bound)
		assert.Equal(t, attempts-limit, rejected)
		count, err := stores.CountByUser(ctx, owner.ID)
		require.NoError(t, err)
		assert.EqualValues(t, limit, count)
	})

	t.Run("a store binds to one owner", func(t *testing.T) {
		tdb.CleanTables()
		m := newMall(t)
		first, err := mall.NewStore(newUser(t, "first").ID, m, "Shop", "same-ext")
		require.NoError(t, err)
		require.NoError(t, stores.BindWithQuota(ctx, first, 5))

		second, err := mall.NewStore(newUser(t, "second").ID, m, "Shop", "same-ext")
		require.NoError(t, err)
		assert.ErrorIs(t, stores.BindWithQuota(ctx, second, 5), mall.ErrStoreBound)
	})

	t.Run("unbind removes sub-account grants", func(t *testing.T) {
		tdb.CleanTables()
		owner := newUser(t, "owner")
		m := newMall(t)
		s, err := mall.NewStore(owner.ID, m, "Shop", "ext-1")
		require.NoError(t, err)
		require.NoError(t, stores.BindWithQuota(ctx, s, 5))

		sub, err := account.NewSubAccount(owner.ID, "helper", "password123", "")
		require.NoError(t, err)
		sub.AssignStores([]uuid.UUID{s.ID})
		require.NoError(t, subs.Create(ctx, sub))

		require.NoError(t, stores.Delete(ctx, owner.ID, s.ID))

		ids, err := subs.StoreIDs(ctx, sub.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("settlement summary keeps decimal precision", func(t *testing.T) {
		tdb.CleanTables()
		owner := newUser(t, "seller")
		m := newMall(t)
		s, err := mall.NewStore(owner.ID, m, "Shop", "ext-1")
		require.NoError(t, err)
		require.NoError(t, stores.BindWithQuota(ctx, s, 5))

		orderedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		var batch []*settlement.Record
		for i, price := range []string{"19.99", "0.01", "10.10"} {
			r, err := settlement.NewRecord(owner.ID, settlement.RecordInput{
				StoreID:   s.ID,
				OrderNo:   fmt.Sprintf("O-%d", i),
				SKU:       "SKU-1",
				Volume:    3,
				AvgPrice:  decimal.RequireFromString(price),
				Currency:  "MYR",
				Status:    settlement.StatusPending,
				OrderedAt: orderedAt,
			})
			require.NoError(t, err)
			batch = append(batch, r)
		}
		require.NoError(t, records.Save(ctx, batch, nil))

		cond := mall.Condition{OwnerID: owner.ID}
		rows, err := records.Summary(ctx, cond, settlement.Filter{})
		require.NoError(t, err)
		summary := settlement.SummaryFromRows(rows)
		assert.True(t, decimal.RequireFromString("90.3").Equal(summary.PendingRevenue), summary.PendingRevenue.String())
		assert.EqualValues(t, 3, summary.PendingCount)
		assert.EqualValues(t, 3, summary.MissingCostCount)
	})
}
