package account

import (
	"context"
	"errors"
	"time"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuthService handles registration, login, token refresh and logout for
// every account type
type AuthService struct {
	users      account.UserRepository
	subs       account.SubAccountRepository
	admins     account.AdminRepository
	levels     membership.LevelRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	resolver   *IdentityResolver
	metrics    *telemetry.AppMetrics
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users account.UserRepository,
	subs account.SubAccountRepository,
	admins account.AdminRepository,
	levels membership.LevelRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	resolver *IdentityResolver,
	metrics *telemetry.AppMetrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		subs:       subs,
		admins:     admins,
		levels:     levels,
		jwtService: jwtService,
		blacklist:  blacklist,
		resolver:   resolver,
		metrics:    metrics,
		logger:     logger,
	}
}

// Register creates a main account on the default membership level
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AccountInfo, error) {
	exists, err := s.users.ExistsByUsername(ctx, account.NormalizeUsername(input.Username))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, account.ErrUsernameTaken
	}

	u, err := account.NewUser(input.Username, input.Password, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}

	def, err := s.levels.FindDefault(ctx)
	switch {
	case err == nil:
		u.MembershipLevelID = &def.ID
	case errors.Is(err, shared.ErrNotFound):
		s.logger.Warn("No default membership level configured")
	default:
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", u.ID.String()),
		zap.String("username", u.Username))

	info := userInfo(u)
	return &info, nil
}

// Login authenticates a main account, sub-account or admin and issues tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	accountType := input.AccountType
	if accountType == "" {
		accountType = account.TypeMain
	}
	username := account.NormalizeUsername(input.Username)

	var (
		principal *account.Principal
		info      AccountInfo
		err       error
	)
	switch accountType {
	case account.TypeMain:
		principal, info, err = s.loginMain(ctx, username, input.Password, input.IP)
	case account.TypeSub:
		principal, info, err = s.loginSub(ctx, username, input.Password)
	case account.TypeAdmin:
		principal, info, err = s.loginAdmin(ctx, username, input.Password)
	default:
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", "Account type must be main or sub")
	}
	s.metrics.RecordLogin(ctx, string(accountType), err == nil)
	if err != nil {
		s.logger.Warn("Login failed",
			zap.String("username", username),
			zap.String("account_type", string(accountType)),
			zap.Error(err))
		return nil, err
	}

	tokens, err := s.jwtService.GenerateTokenPair(principal)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.logger.Info("Login succeeded",
		zap.String("account_id", principal.AccountID.String()),
		zap.String("account_type", string(accountType)))

	return &LoginResult{Tokens: tokens, Account: info}, nil
}

func (s *AuthService) loginMain(ctx context.Context, username, password, ip string) (*account.Principal, AccountInfo, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, AccountInfo{}, credentialError(err)
	}
	if !u.CheckPassword(password) {
		return nil, AccountInfo{}, account.ErrBadCredentials
	}
	if !u.IsActive() {
		return nil, AccountInfo{}, account.ErrAccountDisabled
	}

	u.RecordLogin(ip, time.Now().UTC())
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.Error("Failed to record login", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return account.MainPrincipal(u), userInfo(u), nil
}

func (s *AuthService) loginSub(ctx context.Context, username, password string) (*account.Principal, AccountInfo, error) {
	sub, err := s.subs.FindByUsername(ctx, username)
	if err != nil {
		return nil, AccountInfo{}, credentialError(err)
	}
	if !sub.CheckPassword(password) {
		return nil, AccountInfo{}, account.ErrBadCredentials
	}
	if !sub.IsActive() {
		return nil, AccountInfo{}, account.ErrAccountDisabled
	}
	parent, err := s.users.FindByID(ctx, sub.ParentID)
	if err != nil {
		return nil, AccountInfo{}, credentialError(err)
	}
	if !parent.IsActive() {
		return nil, AccountInfo{}, account.ErrAccountDisabled
	}
	return account.SubPrincipal(sub), subInfo(sub), nil
}

func (s *AuthService) loginAdmin(ctx context.Context, username, password string) (*account.Principal, AccountInfo, error) {
	a, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		return nil, AccountInfo{}, credentialError(err)
	}
	if !a.CheckPassword(password) {
		return nil, AccountInfo{}, account.ErrBadCredentials
	}
	if !a.IsActive() {
		return nil, AccountInfo{}, account.ErrAccountDisabled
	}
	return account.AdminPrincipal(a), adminInfo(a), nil
}

// credentialError hides whether a username exists
func credentialError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return account.ErrBadCredentials
	}
	return err
}

// Refresh exchanges a refresh token for a new pair, reloading the account so
// that disabled accounts and changed store assignments are picked up
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	tokens, err := s.jwtService.RefreshTokenPair(refreshToken, func(c *auth.Claims) (*account.Principal, error) {
		p, err := s.resolver.Resolve(ctx, c)
		if err != nil {
			return nil, err
		}
		// each refresh token is spent before a new pair is issued
		claimed, err := s.blacklist.ClaimToken(ctx, c.ID, c.GetRemainingTTL())
		if err != nil {
			s.logger.Error("Failed to claim refresh token", zap.Error(err))
			return nil, err
		}
		if !claimed {
			return nil, ErrTokenRevoked
		}
		return p, nil
	})
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}
	return tokens, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke access token", zap.Error(err))
		return err
	}
	if refreshToken != "" {
		if rc, err := s.jwtService.ValidateRefreshToken(refreshToken); err == nil && rc.AccountID == claims.AccountID {
			if err := s.blacklist.AddToBlacklist(ctx, rc.ID, rc.GetRemainingTTL()); err != nil {
				s.logger.Error("Failed to revoke refresh token", zap.Error(err))
			}
		}
	}
	s.logger.Info("Logout",
		zap.String("account_id", claims.AccountID),
		zap.String("account_type", string(claims.AccountType)))
	return nil
}

// Me returns the profile of the authenticated account
func (s *AuthService) Me(ctx context.Context, p *account.Principal) (*AccountInfo, error) {
	var info AccountInfo
	switch p.AccountType {
	case account.TypeMain:
		u, err := s.users.FindByID(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}
		info = userInfo(u)
	case account.TypeSub:
		sub, err := s.subs.FindByID(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}
		info = subInfo(sub)
	case account.TypeAdmin:
		a, err := s.admins.FindByID(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}
		info = adminInfo(a)
	default:
		return nil, shared.ErrUnauthorized
	}
	return &info, nil
}
