package account

import (
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// AdminRole is the privilege level of a console operator
type AdminRole string

const (
	AdminRoleSuper    AdminRole = "super"
	AdminRoleOperator AdminRole = "operator"
)

// IsValid reports whether r is a known role
func (r AdminRole) IsValid() bool {
	return r == AdminRoleSuper || r == AdminRoleOperator
}

// Admin is a platform operator of the admin console
type Admin struct {
	shared.BaseEntity
	Credential
	Username string
	Role     AdminRole
	Status   Status
}

// NewAdmin creates an active admin
func NewAdmin(username, password string, role AdminRole) (*Admin, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Admin role must be super or operator")
	}
	a := &Admin{
		BaseEntity: shared.NewBaseEntity(),
		Username:   NormalizeUsername(username),
		Role:       role,
		Status:     StatusActive,
	}
	if err := a.SetPassword(password); err != nil {
		return nil, err
	}
	return a, nil
}

// IsActive returns true if the admin may log in
func (a *Admin) IsActive() bool {
	return a.Status == StatusActive
}
