package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Common errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingAccountID   = errors.New("missing account_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims represents custom JWT claims.
//
// OwnerID is empty for admins. StoreIDs is a login-time snapshot of a
// sub-account's allowed stores; request handling reloads the live set.
type Claims struct {
	jwt.RegisteredClaims
	AccountType  account.Type      `json:"account_type"`
	AccountID    string            `json:"account_id"`
	OwnerID      string            `json:"owner_id,omitempty"`
	Username     string            `json:"username"`
	StoreIDs     []string          `json:"store_ids,omitempty"`
	AdminRole    account.AdminRole `json:"admin_role,omitempty"`
	TokenType    TokenType         `json:"token_type"`
	RefreshCount int               `json:"refresh_count,omitempty"`
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"` // Bearer
}

// JWTService handles JWT token operations
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := []byte(cfg.RefreshSecret)
	if cfg.RefreshSecret == "" {
		refreshSecret = []byte(cfg.Secret)
	}

	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     refreshSecret,
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
	}
}

// GenerateTokenPair issues an access and refresh token for p
func (s *JWTService) GenerateTokenPair(p *account.Principal) (*TokenPair, error) {
	return s.issue(p, 0)
}

func (s *JWTService) issue(p *account.Principal, refreshCount int) (*TokenPair, error) {
	if p == nil || p.AccountID == uuid.Nil || !p.AccountType.IsValid() {
		return nil, ErrInvalidClaims
	}
	now := time.Now()

	accessClaims := s.baseClaims(p, TokenTypeAccess, now, s.accessExpiration)
	accessClaims.Username = p.Username
	accessClaims.AdminRole = p.AdminRole
	if p.Restricted {
		accessClaims.StoreIDs = make([]string, len(p.AllowedStoreIDs))
		for i, id := range p.AllowedStoreIDs {
			accessClaims.StoreIDs[i] = id.String()
		}
	}

	accessToken, err := s.generateToken(accessClaims, s.accessSecret)
	if err != nil {
		return nil, err
	}

	// Refresh tokens carry only the identity; the rest is reloaded on refresh
	refreshClaims := s.baseClaims(p, TokenTypeRefresh, now, s.refreshExpiration)
	refreshClaims.RefreshCount = refreshCount

	refreshToken, err := s.generateToken(refreshClaims, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(s.accessExpiration),
		RefreshTokenExpiresAt: now.Add(s.refreshExpiration),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) baseClaims(p *account.Principal, tt TokenType, now time.Time, ttl time.Duration) *Claims {
	c := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   p.AccountID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		AccountType: p.AccountType,
		AccountID:   p.AccountID.String(),
		TokenType:   tt,
	}
	if p.OwnerID != uuid.Nil {
		c.OwnerID = p.OwnerID.String()
	}
	return c
}

// generateToken creates a signed JWT token
func (s *JWTService) generateToken(claims *Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.refreshSecret, TokenTypeRefresh)
}

// validateToken validates a JWT token
func (s *JWTService) validateToken(tokenString string, secret []byte, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	if claims.AccountID == "" {
		return nil, ErrMissingAccountID
	}
	if !claims.AccountType.IsValid() {
		return nil, ErrInvalidClaims
	}
	if claims.AccountType != account.TypeAdmin && claims.OwnerID == "" {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// RefreshTokenPair exchanges a valid refresh token for a new pair. load
// reloads the current principal so that disabled accounts and changed store
// assignments are picked up.
func (s *JWTService) RefreshTokenPair(refreshToken string, load func(*Claims) (*account.Principal, error)) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	if claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}

	p, err := load(claims)
	if err != nil {
		return nil, err
	}
	if p.AccountID.String() != claims.AccountID || p.AccountType != claims.AccountType {
		return nil, ErrInvalidClaims
	}

	return s.issue(p, claims.RefreshCount+1)
}

// GetAccountUUID parses the account ID from claims
func (c *Claims) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(c.AccountID)
}

// GetOwnerUUID parses the owner ID from claims; admins have none
func (c *Claims) GetOwnerUUID() (uuid.UUID, error) {
	if c.OwnerID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(c.OwnerID)
}

// GetStoreUUIDs parses the store ID snapshot from claims
func (c *Claims) GetStoreUUIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(c.StoreIDs))
	for _, s := range c.StoreIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetAccessTokenExpiration returns the access token expiration duration
func (s *JWTService) GetAccessTokenExpiration() time.Duration {
	return s.accessExpiration
}

// GetRefreshTokenExpiration returns the refresh token expiration duration
func (s *JWTService) GetRefreshTokenExpiration() time.Duration {
	return s.refreshExpiration
}

// ExtractToken returns the bearer token of r, falling back to the named cookie.
// An Authorization header that is present but not a bearer token is not
// replaced by the cookie.
func ExtractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
