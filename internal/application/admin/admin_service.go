package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrSuperOnly  = shared.NewDomainError("FORBIDDEN", "Only super admins can manage admins")
	ErrAdminTaken = shared.NewDomainError("ALREADY_EXISTS", "Admin username already exists")
)

// AdminService manages console operators
type AdminService struct {
	admins account.AdminRepository
	logger *zap.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(admins account.AdminRepository, logger *zap.Logger) *AdminService {
	return &AdminService{admins: admins, logger: logger}
}

// List returns every admin
func (s *AdminService) List(ctx context.Context, p *account.Principal) ([]AdminInfo, error) {
	if !p.IsSuperAdmin() {
		return nil, ErrSuperOnly
	}
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AdminInfo, len(admins))
	for i, a := range admins {
		out[i] = ToAdminInfo(a)
	}
	return out, nil
}

// Create adds an admin on behalf of a super admin
func (s *AdminService) Create(ctx context.Context, p *account.Principal, username, password string, role account.AdminRole) (*AdminInfo, error) {
	if !p.IsSuperAdmin() {
		return nil, ErrSuperOnly
	}
	a, err := s.create(ctx, username, password, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin created",
		zap.String("admin", a.Username),
		zap.String("role", string(a.Role)),
		zap.String("created_by", p.AccountID.String()))
	info := ToAdminInfo(a)
	return &info, nil
}

// Bootstrap creates a super admin when none exists yet. It does nothing
// when admins exist or no username is configured.
func (s *AdminService) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, nil
	}
	count, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	a, err := s.create(ctx, username, password, account.AdminRoleSuper)
	if err != nil {
		return false, err
	}
	s.logger.Info("Bootstrap admin created", zap.String("admin", a.Username))
	return true, nil
}

func (s *AdminService) create(ctx context.Context, username, password string, role account.AdminRole) (*account.Admin, error) {
	a, err := account.NewAdmin(username, password, role)
	if err != nil {
		return nil, err
	}
	if _, err := s.admins.FindByUsername(ctx, a.Username); err == nil {
		return nil, ErrAdminTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
