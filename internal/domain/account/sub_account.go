package account

import (
	"strings"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// SubAccount is a credential delegated by a main account. It only sees the
// stores listed in StoreIDs.
type SubAccount struct {
	shared.BaseEntity
	Credential
	ParentID uuid.UUID
	Username string
	Nickname string
	Status   Status
	StoreIDs []uuid.UUID
}

// NewSubAccount creates an active sub-account with no visible stores
func NewSubAccount(parentID uuid.UUID, username, password, nickname string) (*SubAccount, error) {
	if parentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent account is required")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	s := &SubAccount{
		BaseEntity: shared.NewBaseEntity(),
		ParentID:   parentID,
		Username:   NormalizeUsername(username),
		Nickname:   strings.TrimSpace(nickname),
		Status:     StatusActive,
		StoreIDs:   []uuid.UUID{},
	}
	if err := s.SetPassword(password); err != nil {
		return nil, err
	}
	return s, nil
}

// AssignStores replaces the visible store set. Callers must pass only stores
// bound to the parent account.
func (s *SubAccount) AssignStores(ids []uuid.UUID) {
	s.StoreIDs = shared.UniqueIDs(ids)
	s.Touch()
}

// RevokeStore removes a store from the visible set
func (s *SubAccount) RevokeStore(id uuid.UUID) bool {
	for i, sid := range s.StoreIDs {
		if sid == id {
			s.StoreIDs = append(s.StoreIDs[:i:i], s.StoreIDs[i+1:]...)
			s.Touch()
			return true
		}
	}
	return false
}

// CanSee reports whether the sub-account may read data of store id
func (s *SubAccount) CanSee(id uuid.UUID) bool {
	for _, sid := range s.StoreIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// SetStatus changes the status
func (s *SubAccount) SetStatus(status Status) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown status")
	}
	s.Status = status
	s.Touch()
	return nil
}

// Rename changes the nickname
func (s *SubAccount) Rename(nickname string) {
	s.Nickname = strings.TrimSpace(nickname)
	s.Touch()
}

// IsActive returns true if the sub-account may log in
func (s *SubAccount) IsActive() bool {
	return s.Status == StatusActive
}
