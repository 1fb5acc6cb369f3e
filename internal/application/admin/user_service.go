// Package admin implements the operations of the platform admin console.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"go.uber.org/zap"
)

var ErrMembershipInput = shared.NewDomainError("INVALID_INPUT", "Give either expires_at or extend_days")

// UserService manages main accounts from the console
type UserService struct {
	users     account.UserRepository
	subs      account.SubAccountRepository
	stores    mall.StoreRepository
	levels    membership.LevelRepository
	blacklist auth.TokenBlacklist
	queries   *cache.QueryCache
	identity  *cache.QueryCache
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates a new UserService. tokenTTL is the longest token
// lifetime, used to bound account-wide revocations.
func NewUserService(
	users account.UserRepository,
	subs account.SubAccountRepository,
	stores mall.StoreRepository,
	levels membership.LevelRepository,
	blacklist auth.TokenBlacklist,
	queryCache *cache.QueryCache,
	identityCache *cache.QueryCache,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:     users,
		subs:      subs,
		stores:    stores,
		levels:    levels,
		blacklist: blacklist,
		queries:   queryCache,
		identity:  identityCache,
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns a page of users matching filter
func (s *UserService) List(ctx context.Context, filter account.UserFilter) (shared.Paginated[UserInfo], error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return shared.Paginated[UserInfo]{}, err
	}
	items := make([]UserInfo, len(users))
	for i, u := range users {
		items[i] = ToUserInfo(u)
	}
	return shared.NewPaginated(items, total, filter.Pagination), nil
}

// Get returns a user with its store and sub-account counts
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserDetail, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, u)
}

func (s *UserService) detail(ctx context.Context, u *account.User) (*UserDetail, error) {
	stores, err := s.stores.CountByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	subs, err := s.subs.CountByParent(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	d := &UserDetail{UserInfo: ToUserInfo(u), StoreCount: stores, SubAccountCount: subs}
	if u.MembershipLevelID != nil {
		l, err := s.levels.FindByID(ctx, *u.MembershipLevelID)
		switch {
		case err == nil:
			d.LevelCode = l.Code
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}
	return d, nil
}

// SetStatus enables or disables a user. Disabling revokes the tokens of the
// user and of its sub-accounts.
func (s *UserService) SetStatus(ctx context.Context, id uuid.UUID, status account.Status) (*UserInfo, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case account.StatusActive:
		u.Enable()
	case account.StatusDisabled:
		u.Disable()
	default:
		return nil, shared.NewDomainError("INVALID_STATUS", "Status must be active or disabled")
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	if status == account.StatusDisabled {
		s.revokeAll(ctx, u.ID)
	}

	s.logger.Info("User status changed",
		zap.String("user_id", u.ID.String()),
		zap.String("status", string(status)))
	info := ToUserInfo(u)
	return &info, nil
}

// ResetPassword sets a new password and signs the user out everywhere
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.ResetPassword(password); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.revoke(ctx, u.ID)
	return nil
}

// SetMembership grants a level and re-applies its store quota. Stores beyond
// the quota are marked expired and stores within it are reactivated.
func (s *UserService) SetMembership(ctx context.Context, id uuid.UUID, input SetMembershipInput) (*UserDetail, error) {
	if (input.ExpiresAt == nil) == (input.ExtendDays == 0) {
		return nil, ErrMembershipInput
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	level, err := s.levels.FindByID(ctx, input.LevelID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, shared.NewDomainError("INVALID_EXPIRY", "Expiry must be in the future")
		}
		err = u.GrantMembership(level.ID, *input.ExpiresAt)
	} else {
		err = u.ExtendMembership(level.ID, input.ExtendDays, now)
	}
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	levels, err := s.levels.List(ctx, false)
	if err != nil {
		return nil, err
	}
	quota, _ := membership.ResolveQuota(u, levels, now)
	expired, err := s.stores.MarkOverQuota(ctx, u.ID, quota.Stores)
	if err != nil {
		return nil, err
	}
	if err := s.queries.Invalidate(ctx, u.ID, cache.NamespaceStores); err != nil {
		s.logger.Error("Failed to invalidate store cache", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	s.logger.Info("Membership granted",
		zap.String("user_id", u.ID.String()),
		zap.String("level", level.Code),
		zap.Timep("expires_at", u.MembershipExpiresAt),
		zap.Int64("stores_expired", expired))
	return s.detail(ctx, u)
}

func (s *UserService) revoke(ctx context.Context, id uuid.UUID) {
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, id.String(), s.tokenTTL); err != nil {
		s.logger.Error("Failed to revoke account tokens", zap.String("account_id", id.String()), zap.Error(err))
	}
}

// revokeAll signs out the user and every sub-account under it
func (s *UserService) revokeAll(ctx context.Context, id uuid.UUID) {
	s.revoke(ctx, id)
	subs, err := s.subs.ListByParent(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list sub-accounts", zap.String("user_id", id.String()), zap.Error(err))
		return
	}
	for _, sub := range subs {
		s.revoke(ctx, sub.ID)
		if err := s.identity.Invalidate(ctx, sub.ID, cache.NamespaceSubAccountStores); err != nil {
			s.logger.Error("Failed to invalidate sub-account identity", zap.String("sub_account_id", sub.ID.String()), zap.Error(err))
		}
	}
}
