package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/logger"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ClaimsKey    = "auth_claims"
	PrincipalKey = "auth_principal"
)

// PrincipalResolver turns validated claims into the principal of a request
type PrincipalResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (*account.Principal, error)
}

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Resolver checks revocation and reloads the account behind the token
	Resolver PrincipalResolver
	// CookieName is read when no Authorization header is sent
	CookieName string
	// Logger for middleware logging
	Logger *zap.Logger
}

// Authenticate accepts a bearer token or, without an Authorization header,
// the auth cookie. The resolved principal and the claims are stored on the
// gin context.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request, cfg.CookieName)
		if token == "" {
			abortAuth(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			code, message := tokenError(err)
			log.Debug("Token validation failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abortAuth(c, code, message)
			return
		}

		ctx := c.Request.Context()
		principal, err := cfg.Resolver.Resolve(ctx, claims)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				code := dto.NormalizeErrorCode(de.Code)
				c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
					dto.NewErrorResponseWithRequestID(code, de.Message, c.GetString(RequestIDContextKey)))
				return
			}
			log.Error("Failed to resolve principal",
				zap.String("account_id", claims.AccountID),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "Failed to resolve account", c.GetString(RequestIDContextKey)))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(PrincipalKey, principal)

		acc := logger.Account{Type: string(principal.AccountType), ID: principal.AccountID.String()}
		if !principal.IsAdmin() {
			acc.OwnerID = principal.OwnerID.String()
		}
		c.Request = c.Request.WithContext(logger.WithAccount(ctx, acc))

		c.Next()
	}
}

// tokenError maps a JWT validation error to an API error code and message
func tokenError(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidTokenType):
		return dto.ErrCodeTokenInvalid, "Invalid token type"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}

func abortAuth(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDContextKey)))
}

// RequireAccountType rejects principals whose account type is not listed
func RequireAccountType(types ...account.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			abortAuth(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, t := range types {
			if p.AccountType == t {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "This account type cannot access this resource", c.GetString(RequestIDContextKey)))
	}
}

// RequireAdminRole rejects callers that are not admins with one of roles.
// Without roles any admin passes.
func RequireAdminRole(roles ...account.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			abortAuth(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if p.IsAdmin() {
			if len(roles) == 0 {
				c.Next()
				return
			}
			for _, r := range roles {
				if p.AdminRole == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Admin privileges required", c.GetString(RequestIDContextKey)))
	}
}

// GetPrincipal retrieves the principal stored by Authenticate
func GetPrincipal(c *gin.Context) *account.Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		if p, ok := v.(*account.Principal); ok {
			return p
		}
	}
	return nil
}

// GetClaims retrieves the token claims stored by Authenticate
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
