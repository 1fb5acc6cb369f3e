package mall

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"golang.org/x/text/unicode/norm"
)

// StoreStatus is the state of a binding
type StoreStatus string

const (
	StoreStatusActive StoreStatus = "active"
	// StoreStatusExpired marks bindings beyond the owner's current quota
	StoreStatusExpired StoreStatus = "expired"
)

var (
	ErrMallDisabled   = shared.NewDomainError("MALL_DISABLED", "Mall is not open for binding")
	ErrStoreBound     = shared.NewDomainError("ALREADY_EXISTS", "Store is already bound to an account")
	ErrStoreQuotaFull = shared.NewDomainError("QUOTA_EXCEEDED", "Store quota of the current membership is used up")
	ErrStoreExpired   = shared.NewDomainError("INVALID_STATE", "Store is beyond the quota of the current membership")
)

const maxStoreNameLength = 100

// Store binds an external storefront on a mall to a main account
type Store struct {
	shared.BaseEntity
	UserID     uuid.UUID
	MallID     uuid.UUID
	Name       string
	ExternalID string
	Status     StoreStatus
	BoundAt    time.Time
}

// NewStore binds the storefront externalID on m to userID
func NewStore(userID uuid.UUID, m *Mall, name, externalID string) (*Store, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Owner account is required")
	}
	if m == nil || !m.Enabled {
		return nil, ErrMallDisabled
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External store id is required")
	}
	s := &Store{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		MallID:     m.ID,
		ExternalID: externalID,
		Status:     StoreStatusActive,
	}
	s.BoundAt = s.CreatedAt
	if err := s.Rename(name); err != nil {
		return nil, err
	}
	return s, nil
}

// NormalizeStoreName folds full-width and compatibility forms (NFKC) and trims
// spaces, so names copied from seller centers compare equal to typed ones.
func NormalizeStoreName(name string) string {
	return strings.TrimSpace(norm.NFKC.String(name))
}

// Rename changes the display name
func (s *Store) Rename(name string) error {
	name = NormalizeStoreName(name)
	if name == "" || len([]rune(name)) > maxStoreNameLength {
		return shared.NewDomainError("INVALID_STORE_NAME", "Store name must be 1-100 characters")
	}
	s.Name = name
	s.Touch()
	return nil
}

// Visible reports whether p may see this store
func (s *Store) Visible(p *account.Principal) bool {
	return p != nil && p.CanAccessStore(s.UserID, s.ID)
}
