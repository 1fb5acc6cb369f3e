package account

import (
	"github.com/google/uuid"
)

// Type distinguishes the kinds of authenticated callers
type Type string

const (
	TypeMain  Type = "main"
	TypeSub   Type = "sub"
	TypeAdmin Type = "admin"
)

// IsValid reports whether t is a known account type
func (t Type) IsValid() bool {
	return t == TypeMain || t == TypeSub || t == TypeAdmin
}

// Principal is the resolved identity of a request.
//
// OwnerID is the main account whose data is visible: the caller itself for a
// main account, the parent for a sub-account. Restricted principals see only
// AllowedStoreIDs; unrestricted ones see every store of OwnerID.
type Principal struct {
	AccountType     Type
	AccountID       uuid.UUID
	OwnerID         uuid.UUID
	Username        string
	Restricted      bool
	AllowedStoreIDs []uuid.UUID
	AdminRole       AdminRole
}

// MainPrincipal builds the principal of a main account
func MainPrincipal(u *User) *Principal {
	return &Principal{
		AccountType: TypeMain,
		AccountID:   u.ID,
		OwnerID:     u.ID,
		Username:    u.Username,
	}
}

// SubPrincipal builds the principal of a sub-account
func SubPrincipal(s *SubAccount) *Principal {
	allowed := make([]uuid.UUID, len(s.StoreIDs))
	copy(allowed, s.StoreIDs)
	return &Principal{
		AccountType:     TypeSub,
		AccountID:       s.ID,
		OwnerID:         s.ParentID,
		Username:        s.Username,
		Restricted:      true,
		AllowedStoreIDs: allowed,
	}
}

// AdminPrincipal builds the principal of a console admin
func AdminPrincipal(a *Admin) *Principal {
	return &Principal{
		AccountType: TypeAdmin,
		AccountID:   a.ID,
		Username:    a.Username,
		AdminRole:   a.Role,
	}
}

// IsMain returns true for main accounts
func (p *Principal) IsMain() bool { return p.AccountType == TypeMain }

// IsSub returns true for sub-accounts
func (p *Principal) IsSub() bool { return p.AccountType == TypeSub }

// IsAdmin returns true for console admins
func (p *Principal) IsAdmin() bool { return p.AccountType == TypeAdmin }

// IsSuperAdmin returns true for admins with the super role
func (p *Principal) IsSuperAdmin() bool {
	return p.IsAdmin() && p.AdminRole == AdminRoleSuper
}

// CanAccessStore reports whether the principal may read store id owned by
// ownerID.
func (p *Principal) CanAccessStore(ownerID, id uuid.UUID) bool {
	if p.IsAdmin() || ownerID != p.OwnerID {
		return false
	}
	if !p.Restricted {
		return true
	}
	for _, sid := range p.AllowedStoreIDs {
		if sid == id {
			return true
		}
	}
	return false
}
