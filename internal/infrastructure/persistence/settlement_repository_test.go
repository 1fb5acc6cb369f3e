package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSettlementRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFixture(t, db)
	records := NewGormSettlementRepository(db)
	costs := NewGormCostPriceRepository(db)

	owner := f.user("owner")
	m := f.mall("shopee-my")
	s1 := f.store(owner, m, "one", "1")
	s2 := f.store(owner, m, "two", "2")
	sub := f.sub(owner, "helper", s1)

	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	batch := []*settlement.Record{
		record(t, owner, s1, "o-1", "sku-a", "10.5", 2, settlement.StatusPending, day),
		record(t, owner, s1, "o-2", "sku-b", "4", 1, settlement.StatusArrived, day.Add(24*time.Hour)),
		record(t, owner, s2, "o-3", "sku-a", "20", 3, settlement.StatusPending, day.Add(48*time.Hour)),
	}
	require.NoError(t, records.Save(f.ctx, batch, nil))

	cost, err := settlement.NewCostPrice(owner.ID, s1.ID, "sku-a", decimal.RequireFromString("6.25"))
	require.NoError(t, err)
	require.NoError(t, costs.Upsert(f.ctx, []*settlement.CostPrice{cost}))

	mainCond := mall.BuildCondition(account.MainPrincipal(owner), mall.StoreFilter{})
	subCond := mall.BuildCondition(account.SubPrincipal(sub), mall.StoreFilter{})

	t.Run("list is scoped and newest first", func(t *testing.T) {
		got, total, err := records.List(f.ctx, mainCond, settlement.Filter{}, shared.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, got, 3)
		assert.Equal(t, "o-3", got[0].OrderNo)

		got, total, err = records.List(f.ctx, subCond, settlement.Filter{}, shared.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		for _, r := range got {
			assert.Equal(t, s1.ID, r.StoreID)
		}
	})

	t.Run("list filters by status, sku and inclusive date range", func(t *testing.T) {
		got, _, err := records.List(f.ctx, mainCond, settlement.Filter{Status: settlement.StatusArrived}, shared.Pagination{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "o-2", got[0].OrderNo)

		start := day
		end := day.Add(24 * time.Hour)
		_, total, err := records.List(f.ctx, mainCond, settlement.Filter{SKU: "sku-a", StartDate: &start, EndDate: &end}, shared.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("pagination", func(t *testing.T) {
		got, total, err := records.List(f.ctx, mainCond, settlement.Filter{}, shared.Pagination{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, got, 1)
		assert.Equal(t, "o-1", got[0].OrderNo)
	})

	t.Run("summary aggregates per status with missing costs", func(t *testing.T) {
		rows, err := records.Summary(f.ctx, mainCond, settlement.Filter{})
		require.NoError(t, err)
		sum := settlement.SummaryFromRows(rows)

		assert.True(t, decimal.RequireFromString("81").Equal(sum.PendingRevenue), sum.PendingRevenue.String())
		assert.True(t, decimal.RequireFromString("4").Equal(sum.ArrivedRevenue), sum.ArrivedRevenue.String())
		assert.True(t, decimal.RequireFromString("12.5").Equal(sum.TotalCost), sum.TotalCost.String())
		assert.EqualValues(t, 2, sum.PendingCount)
		assert.EqualValues(t, 1, sum.ArrivedCount)
		assert.EqualValues(t, 2, sum.MissingCostCount)
		assert.Equal(t, "MYR", sum.Currency)
		require.Len(t, sum.ByCurrency, 1)
		assert.True(t, sum.TotalRevenue.Equal(sum.ByCurrency[0].TotalRevenue))
	})

	t.Run("summary of a sub-account only covers its stores", func(t *testing.T) {
		rows, err := records.Summary(f.ctx, subCond, settlement.Filter{})
		require.NoError(t, err)
		sum := settlement.SummaryFromRows(rows)
		assert.True(t, decimal.RequireFromString("21").Equal(sum.PendingRevenue), sum.PendingRevenue.String())
		assert.EqualValues(t, 1, sum.MissingCostCount)
	})

	t.Run("re-import updates by natural key", func(t *testing.T) {
		again := record(t, owner, s1, "o-1", "sku-a", "11", 5, settlement.StatusArrived, day)
		existing, err := records.FindByKeys(f.ctx, owner.ID, []settlement.RecordKey{again.Key()})
		require.NoError(t, err)
		require.Len(t, existing, 1)
		existing[0].Merge(again)
		require.NoError(t, records.Save(f.ctx, nil, existing))

		got, _, err := records.List(f.ctx, mainCond, settlement.Filter{Status: settlement.StatusArrived}, shared.Pagination{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("colliding inserts update the existing row", func(t *testing.T) {
		dup := record(t, owner, s2, "o-3", "sku-a", "25", 1, settlement.StatusPending, day)
		require.NoError(t, records.Save(f.ctx, []*settlement.Record{dup}, nil))

		_, total, err := records.List(f.ctx, mainCond, settlement.Filter{}, shared.Pagination{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})
}

func TestGormCostPriceRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	f := newFixture(t, db)
	costs := NewGormCostPriceRepository(db)

	owner := f.user("owner")
	m := f.mall("shopee-my")
	s1 := f.store(owner, m, "one", "1")
	s2 := f.store(owner, m, "two", "2")

	first, err := settlement.NewCostPrice(owner.ID, s1.ID, "sku-a", decimal.RequireFromString("3"))
	require.NoError(t, err)
	other, err := settlement.NewCostPrice(owner.ID, s2.ID, "sku-a", decimal.RequireFromString("4"))
	require.NoError(t, err)
	require.NoError(t, costs.Upsert(f.ctx, []*settlement.CostPrice{first, other}))

	replaced, err := settlement.NewCostPrice(owner.ID, s1.ID, "sku-a", decimal.RequireFromString("3.5"))
	require.NoError(t, err)
	require.NoError(t, costs.Upsert(f.ctx, []*settlement.CostPrice{replaced}))

	found, err := costs.Lookup(f.ctx, owner.ID, []settlement.CostKey{
		{StoreID: s1.ID, SKU: "sku-a"},
		{StoreID: s1.ID, SKU: "missing"},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, decimal.RequireFromString("3.5").Equal(found[settlement.CostKey{StoreID: s1.ID, SKU: "sku-a"}]))

	cond := mall.BuildCondition(account.MainPrincipal(owner), mall.StoreFilter{StoreIDs: []uuid.UUID{s2.ID}})
	list, total, err := costs.List(f.ctx, cond, settlement.CostFilter{SKU: "sku-a"}, shared.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, s2.ID, list[0].StoreID)
}
