package account

import (
	"errors"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
)

var (
	ErrTokenExpired     = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid     = shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	ErrTokenRevoked     = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	ErrTokenMaxRefresh  = shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	ErrAccountGone      = shared.NewDomainError("UNAUTHORIZED", "Account no longer exists")
	ErrSubAccountQuota  = shared.NewDomainError("QUOTA_EXCEEDED", "Sub-account quota of the current membership is used up")
	ErrStoreNotAssigned = shared.NewDomainError("INVALID_STORE", "Stores must be bound to the main account")
	ErrMainOnly         = shared.NewDomainError("FORBIDDEN", "Only the main account can perform this action")
)

// mapTokenError turns a JWT validation error into a domain error. Domain
// errors raised while reloading the principal pass through unchanged.
func mapTokenError(err error) error {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, auth.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return ErrTokenMaxRefresh
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return ErrTokenRevoked
	default:
		return ErrTokenInvalid
	}
}

func requireMain(p *account.Principal) error {
	if p == nil || !p.IsMain() {
		return ErrMainOnly
	}
	return nil
}
