package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	users  *GormUserRepository
	subs   *GormSubAccountRepository
	malls  *GormMallRepository
	stores *GormStoreRepository
}

func newFixture(t *testing.T, db *gorm.DB) *fixture {
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		users:  NewGormUserRepository(db),
		subs:   NewGormSubAccountRepository(db),
		malls:  NewGormMallRepository(db),
		stores: NewGormStoreRepository(db),
	}
}

func (f *fixture) user(name string) *account.User {
	f.t.Helper()
	u, err := account.NewUser(name, "password123", "", "")
	require.NoError(f.t, err)
	require.NoError(f.t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) mall(code string) *mall.Mall {
	f.t.Helper()
	m, err := mall.NewMall(code, code, "shopee", "MY", "MYR")
	require.NoError(f.t, err)
	require.NoError(f.t, f.malls.Create(f.ctx, m))
	return m
}

func (f *fixture) store(u *account.User, m *mall.Mall, name, ext string) *mall.Store {
	f.t.Helper()
	s, err := mall.NewStore(u.ID, m, name, ext)
	require.NoError(f.t, err)
	require.NoError(f.t, f.stores.BindWithQuota(f.ctx, s, 100))
	return s
}

func (f *fixture) sub(parent *account.User, name string, stores ...*mall.Store) *account.SubAccount {
	f.t.Helper()
	s, err := account.NewSubAccount(parent.ID, name, "password123", "")
	require.NoError(f.t, err)
	ids := make([]uuid.UUID, 0, len(stores))
	for _, st := range stores {
		ids = append(ids, st.ID)
	}
	s.AssignStores(ids)
	require.NoError(f.t, f.subs.Create(f.ctx, s))
	return s
}

func record(t *testing.T, u *account.User, s *mall.Store, orderNo, sku, price string, volume int64, status settlement.Status, at time.Time) *settlement.Record {
	t.Helper()
	r, err := settlement.NewRecord(u.ID, settlement.RecordInput{
		StoreID:   s.ID,
		OrderNo:   orderNo,
		SKU:       sku,
		Volume:    volume,
		AvgPrice:  decimal.RequireFromString(price),
		Currency:  "MYR",
		Status:    status,
		OrderedAt: at,
	})
	require.NoError(t, err)
	return r
}
