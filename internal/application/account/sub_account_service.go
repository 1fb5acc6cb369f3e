package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SubAccountService lets a main account manage its sub-accounts
type SubAccountService struct {
	subs      account.SubAccountRepository
	users     account.UserRepository
	levels    membership.LevelRepository
	stores    mall.StoreRepository
	identity  *cache.QueryCache
	blacklist auth.TokenBlacklist
	tokenTTL  time.Duration
	metrics   *telemetry.AppMetrics
	logger    *zap.Logger
}

// NewSubAccountService creates a new SubAccountService. tokenTTL is the
// longest token lifetime; revocations of a sub-account are kept that long.
func NewSubAccountService(
	subs account.SubAccountRepository,
	users account.UserRepository,
	levels membership.LevelRepository,
	stores mall.StoreRepository,
	identityCache *cache.QueryCache,
	blacklist auth.TokenBlacklist,
	tokenTTL time.Duration,
	metrics *telemetry.AppMetrics,
	logger *zap.Logger,
) *SubAccountService {
	return &SubAccountService{
		subs:      subs,
		users:     users,
		levels:    levels,
		stores:    stores,
		identity:  identityCache,
		blacklist: blacklist,
		tokenTTL:  tokenTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// List returns the sub-accounts of the caller
func (s *SubAccountService) List(ctx context.Context, p *account.Principal) ([]SubAccountInfo, error) {
	if err := requireMain(p); err != nil {
		return nil, err
	}
	subs, err := s.subs.ListByParent(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	out := make([]SubAccountInfo, len(subs))
	for i, sub := range subs {
		out[i] = ToSubAccountInfo(sub)
	}
	return out, nil
}

// Create adds a sub-account within the sub-account quota of the caller's
// membership
func (s *SubAccountService) Create(ctx context.Context, p *account.Principal, input CreateSubAccountInput) (*SubAccountInfo, error) {
	if err := requireMain(p); err != nil {
		return nil, err
	}

	quota, err := s.quota(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	count, err := s.subs.CountByParent(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	if count >= int64(quota.SubAccounts) {
		s.metrics.RecordQuotaDenied(ctx, "sub_accounts")
		return nil, ErrSubAccountQuota
	}

	exists, err := s.subs.ExistsByUsername(ctx, account.NormalizeUsername(input.Username))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, account.ErrUsernameTaken
	}

	sub, err := account.NewSubAccount(p.OwnerID, input.Username, input.Password, input.Nickname)
	if err != nil {
		return nil, err
	}
	ids, err := s.ownedStores(ctx, p.OwnerID, input.StoreIDs)
	if err != nil {
		return nil, err
	}
	sub.AssignStores(ids)

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Sub-account created",
		zap.String("parent_id", p.OwnerID.String()),
		zap.String("sub_account_id", sub.ID.String()),
		zap.Int("stores", len(sub.StoreIDs)))

	info := ToSubAccountInfo(sub)
	return &info, nil
}

// Update changes a sub-account of the caller. Disabling it or changing its
// password revokes its issued tokens.
func (s *SubAccountService) Update(ctx context.Context, p *account.Principal, id uuid.UUID, input UpdateSubAccountInput) (*SubAccountInfo, error) {
	sub, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	revoke := false
	if input.Nickname != nil {
		sub.Rename(*input.Nickname)
	}
	if input.Password != nil {
		if err := sub.SetPassword(*input.Password); err != nil {
			return nil, err
		}
		sub.Touch()
		revoke = true
	}
	if input.Status != nil {
		if err := sub.SetStatus(*input.Status); err != nil {
			return nil, err
		}
		revoke = revoke || !sub.IsActive()
	}
	if input.StoreIDs != nil {
		ids, err := s.ownedStores(ctx, p.OwnerID, *input.StoreIDs)
		if err != nil {
			return nil, err
		}
		sub.AssignStores(ids)
	}

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.forget(ctx, sub.ID, revoke)

	info := ToSubAccountInfo(sub)
	return &info, nil
}

// Delete removes a sub-account of the caller and revokes its tokens
func (s *SubAccountService) Delete(ctx context.Context, p *account.Principal, id uuid.UUID) error {
	if err := requireMain(p); err != nil {
		return err
	}
	if err := s.subs.Delete(ctx, p.OwnerID, id); err != nil {
		return err
	}
	s.forget(ctx, id, true)
	s.logger.Info("Sub-account deleted",
		zap.String("parent_id", p.OwnerID.String()),
		zap.String("sub_account_id", id.String()))
	return nil
}

func (s *SubAccountService) owned(ctx context.Context, p *account.Principal, id uuid.UUID) (*account.SubAccount, error) {
	if err := requireMain(p); err != nil {
		return nil, err
	}
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.ParentID != p.OwnerID {
		return nil, shared.ErrNotFound
	}
	return sub, nil
}

// forget drops the cached identity of a sub-account and optionally revokes
// every token it holds
func (s *SubAccountService) forget(ctx context.Context, id uuid.UUID, revoke bool) {
	if err := s.identity.Invalidate(ctx, id, cache.NamespaceSubAccountStores); err != nil {
		s.logger.Error("Failed to invalidate sub-account identity", zap.String("sub_account_id", id.String()), zap.Error(err))
	}
	if !revoke {
		return
	}
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, id.String(), s.tokenTTL); err != nil {
		s.logger.Error("Failed to revoke sub-account tokens", zap.String("sub_account_id", id.String()), zap.Error(err))
	}
}

// ownedStores checks that every id is a store bound to owner
func (s *SubAccountService) ownedStores(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	ids = shared.UniqueIDs(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	statuses, err := s.stores.Statuses(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		status, ok := statuses[id]
		if !ok {
			return nil, ErrStoreNotAssigned
		}
		if status != mall.StoreStatusActive {
			return nil, mall.ErrStoreExpired
		}
	}
	return ids, nil
}

func (s *SubAccountService) quota(ctx context.Context, owner uuid.UUID) (membership.Quota, error) {
	u, err := s.users.FindByID(ctx, owner)
	if err != nil {
		return membership.Quota{}, err
	}
	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return membership.Quota{}, err
	}
	q, _ := membership.ResolveQuota(u, levels, time.Now())
	return q, nil
}
