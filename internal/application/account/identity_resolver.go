package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// subIdentity is the cached part of a sub-account principal
type subIdentity struct {
	ParentID uuid.UUID   `json:"parent_id"`
	Username string      `json:"username"`
	Active   bool        `json:"active"`
	StoreIDs []uuid.UUID `json:"store_ids"`
}

// IdentityResolver turns validated token claims into the Principal of a
// request. Accounts are reloaded on every request so that disabled accounts
// are rejected at once. The allowed store set of a sub-account is read
// through the identity cache, which writers invalidate on every change.
type IdentityResolver struct {
	users     account.UserRepository
	subs      account.SubAccountRepository
	admins    account.AdminRepository
	cache     *cache.QueryCache
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(
	users account.UserRepository,
	subs account.SubAccountRepository,
	admins account.AdminRepository,
	identityCache *cache.QueryCache,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		users:     users,
		subs:      subs,
		admins:    admins,
		cache:     identityCache,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Resolve checks the revocation lists and loads the principal of claims
func (r *IdentityResolver) Resolve(ctx context.Context, claims *auth.Claims) (*account.Principal, error) {
	if err := r.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return r.Load(ctx, claims)
}

func (r *IdentityResolver) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if r.blacklist == nil {
		return nil
	}
	revoked, err := r.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	invalidated, err := r.blacklist.IsUserTokenInvalidated(ctx, claims.AccountID, claims.GetIssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return ErrTokenRevoked
	}
	return nil
}

// Load builds the current principal of the account named by claims
func (r *IdentityResolver) Load(ctx context.Context, claims *auth.Claims) (*account.Principal, error) {
	id, err := claims.GetAccountUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	switch claims.AccountType {
	case account.TypeMain:
		return r.loadMain(ctx, id)
	case account.TypeSub:
		return r.loadSub(ctx, id)
	case account.TypeAdmin:
		return r.loadAdmin(ctx, id)
	default:
		return nil, ErrTokenInvalid
	}
}

func (r *IdentityResolver) loadMain(ctx context.Context, id uuid.UUID) (*account.Principal, error) {
	u, err := r.users.FindByID(ctx, id)
	if err != nil {
		return nil, gone(err)
	}
	if !u.IsActive() {
		return nil, account.ErrAccountDisabled
	}
	return account.MainPrincipal(u), nil
}

func (r *IdentityResolver) loadSub(ctx context.Context, id uuid.UUID) (*account.Principal, error) {
	snap, err := cache.Get(ctx, r.cache, cache.NamespaceSubAccountStores, id, nil,
		func(ctx context.Context) (subIdentity, error) {
			s, err := r.subs.FindByID(ctx, id)
			if err != nil {
				return subIdentity{}, err
			}
			return subIdentity{
				ParentID: s.ParentID,
				Username: s.Username,
				Active:   s.IsActive(),
				StoreIDs: s.StoreIDs,
			}, nil
		})
	if err != nil {
		return nil, gone(err)
	}
	if !snap.Active {
		return nil, account.ErrAccountDisabled
	}

	parent, err := r.users.FindByID(ctx, snap.ParentID)
	if err != nil {
		return nil, gone(err)
	}
	if !parent.IsActive() {
		r.logger.Debug("Sub-account rejected, parent disabled",
			zap.String("sub_account_id", id.String()),
			zap.String("parent_id", parent.ID.String()))
		return nil, account.ErrAccountDisabled
	}

	allowed := snap.StoreIDs
	if allowed == nil {
		allowed = []uuid.UUID{}
	}
	return &account.Principal{
		AccountType:     account.TypeSub,
		AccountID:       id,
		OwnerID:         snap.ParentID,
		Username:        snap.Username,
		Restricted:      true,
		AllowedStoreIDs: allowed,
	}, nil
}

func (r *IdentityResolver) loadAdmin(ctx context.Context, id uuid.UUID) (*account.Principal, error) {
	a, err := r.admins.FindByID(ctx, id)
	if err != nil {
		return nil, gone(err)
	}
	if !a.IsActive() {
		return nil, account.ErrAccountDisabled
	}
	return account.AdminPrincipal(a), nil
}

func gone(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return ErrAccountGone
	}
	return err
}
