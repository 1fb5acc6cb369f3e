package handler

import (
	"time"

	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
)

// =====================
// Auth Request DTOs
// =====================

// RegisterRequest represents the request body for main account registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Email    string `json:"email" binding:"omitempty,email,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
}

// LoginRequest represents the request body for a customer login
type LoginRequest struct {
	AccountType string `json:"account_type" binding:"omitempty,oneof=main sub" example:"main"`
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,max=128"`
}

// AdminLoginRequest represents the request body for a console login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshTokenRequest represents the request body for token refresh. The
// refresh cookie is used when the body carries no token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest optionally carries the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

func toTokenResponse(t *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           t.AccessToken,
		RefreshToken:          t.RefreshToken,
		AccessTokenExpiresAt:  t.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: t.RefreshTokenExpiresAt,
		TokenType:             t.TokenType,
	}
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	Token   TokenResponse          `json:"token"`
	Account accountapp.AccountInfo `json:"account"`
}
