package mall

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrMainOnly is returned when a sub-account tries to change bindings
var ErrMainOnly = shared.NewDomainError("FORBIDDEN", "Only the main account can manage store bindings")

// StoreService binds, renames, unbinds and lists stores
type StoreService struct {
	stores   mall.StoreRepository
	malls    mall.MallRepository
	users    account.UserRepository
	subs     account.SubAccountRepository
	levels   membership.LevelRepository
	cache    *cache.QueryCache
	identity *cache.QueryCache
	metrics  *telemetry.AppMetrics
	logger   *zap.Logger
}

// NewStoreService creates a new StoreService. queryCache memoizes store
// lists; identityCache holds the store sets of sub-accounts.
func NewStoreService(
	stores mall.StoreRepository,
	malls mall.MallRepository,
	users account.UserRepository,
	subs account.SubAccountRepository,
	levels membership.LevelRepository,
	queryCache *cache.QueryCache,
	identityCache *cache.QueryCache,
	metrics *telemetry.AppMetrics,
	logger *zap.Logger,
) *StoreService {
	return &StoreService{
		stores:   stores,
		malls:    malls,
		users:    users,
		subs:     subs,
		levels:   levels,
		cache:    queryCache,
		identity: identityCache,
		metrics:  metrics,
		logger:   logger,
	}
}

type storeListParams struct {
	Cond mall.Condition    `json:"cond"`
	Page shared.Pagination `json:"page"`
}

// List returns the stores visible to p narrowed by filter
func (s *StoreService) List(ctx context.Context, p *account.Principal, filter mall.StoreFilter, page shared.Pagination) (shared.Paginated[StoreInfo], error) {
	cond := mall.BuildCondition(p, filter)
	page = page.Normalize()
	if cond.Empty {
		return shared.NewPaginated([]StoreInfo{}, 0, page), nil
	}

	params := storeListParams{Cond: cond, Page: page}
	return cache.Get(ctx, s.cache, cache.NamespaceStores, cond.OwnerID, params,
		func(ctx context.Context) (shared.Paginated[StoreInfo], error) {
			stores, total, err := s.stores.List(ctx, cond, page)
			if err != nil {
				return shared.Paginated[StoreInfo]{}, err
			}
			items := make([]StoreInfo, len(stores))
			for i, st := range stores {
				items[i] = ToStoreInfo(st)
			}
			return shared.NewPaginated(items, total, page), nil
		})
}

// Bind binds an external store to the caller. The store quota is resolved
// from the membership and enforced under a lock on the owner row.
func (s *StoreService) Bind(ctx context.Context, p *account.Principal, input BindStoreInput) (*StoreInfo, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "store", "bind",
		telemetry.SpanAttrOwnerID, p.OwnerID, "mall_id", input.MallID)
	defer span.End()

	if !p.IsMain() {
		return nil, ErrMainOnly
	}

	m, err := s.malls.FindByID(ctx, input.MallID)
	if err != nil {
		return nil, err
	}
	store, err := mall.NewStore(p.OwnerID, m, input.Name, input.ExternalID)
	if err != nil {
		return nil, err
	}

	quota, err := s.storeQuota(ctx, p.OwnerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.stores.BindWithQuota(ctx, store, quota); err != nil {
		switch {
		case errors.Is(err, mall.ErrStoreQuotaFull):
			s.metrics.RecordStoreBind(ctx, telemetry.ResultRejected)
			s.metrics.RecordQuotaDenied(ctx, "stores")
		case errors.Is(err, mall.ErrStoreBound):
			s.metrics.RecordStoreBind(ctx, telemetry.ResultRejected)
		default:
			s.metrics.RecordStoreBind(ctx, telemetry.ResultFailure)
			telemetry.RecordError(span, err)
		}
		return nil, err
	}
	s.metrics.RecordStoreBind(ctx, telemetry.ResultSuccess)
	s.invalidate(ctx, p.OwnerID, cache.NamespaceStores)

	s.logger.Info("Store bound",
		zap.String("owner_id", p.OwnerID.String()),
		zap.String("store_id", store.ID.String()),
		zap.String("mall", m.Code),
		zap.Int("quota", quota))

	info := ToStoreInfo(store)
	return &info, nil
}

func (s *StoreService) storeQuota(ctx context.Context, owner uuid.UUID) (int, error) {
	u, err := s.users.FindByID(ctx, owner)
	if err != nil {
		return 0, err
	}
	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return 0, err
	}
	q, _ := membership.ResolveQuota(u, levels, time.Now())
	return q.Stores, nil
}

// Rename changes the display name of a store of the caller
func (s *StoreService) Rename(ctx context.Context, p *account.Principal, id uuid.UUID, name string) (*StoreInfo, error) {
	if !p.IsMain() {
		return nil, ErrMainOnly
	}
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store.UserID != p.OwnerID {
		return nil, shared.ErrNotFound
	}
	if err := store.Rename(name); err != nil {
		return nil, err
	}
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.OwnerID, cache.NamespaceStores)

	info := ToStoreInfo(store)
	return &info, nil
}

// Unbind removes a store of the caller. Its settlement rows, cost prices and
// sub-account assignments go with it.
func (s *StoreService) Unbind(ctx context.Context, p *account.Principal, id uuid.UUID) error {
	if !p.IsMain() {
		return ErrMainOnly
	}
	if err := s.stores.Delete(ctx, p.OwnerID, id); err != nil {
		return err
	}
	s.invalidate(ctx, p.OwnerID, cache.NamespaceStores, cache.NamespaceSettlements, cache.NamespaceCostPrices)

	subs, err := s.subs.ListByParent(ctx, p.OwnerID)
	if err != nil {
		s.logger.Error("Failed to list sub-accounts after unbind", zap.Error(err))
		return nil
	}
	for _, sub := range subs {
		if err := s.identity.Invalidate(ctx, sub.ID, cache.NamespaceSubAccountStores); err != nil {
			s.logger.Error("Failed to invalidate sub-account identity",
				zap.String("sub_account_id", sub.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("Store unbound",
		zap.String("owner_id", p.OwnerID.String()),
		zap.String("store_id", id.String()))
	return nil
}

func (s *StoreService) invalidate(ctx context.Context, owner uuid.UUID, namespaces ...string) {
	if err := s.cache.Invalidate(ctx, owner, namespaces...); err != nil {
		s.logger.Error("Failed to invalidate query cache",
			zap.String("owner_id", owner.String()),
			zap.Strings("namespaces", namespaces),
			zap.Error(err))
	}
}
