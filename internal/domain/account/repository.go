package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// UserFilter holds the admin console query options for users
type UserFilter struct {
	Keyword string
	Status  Status
	shared.Pagination
}

// UserRepository persists main accounts
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	// ListMembershipExpired returns users whose membership expired in (since, until]
	ListMembershipExpired(ctx context.Context, since, until time.Time) ([]*User, error)
}

// SubAccountRepository persists sub-accounts and their store assignments
type SubAccountRepository interface {
	Create(ctx context.Context, s *SubAccount) error
	Update(ctx context.Context, s *SubAccount) error
	Delete(ctx context.Context, parentID, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*SubAccount, error)
	FindByUsername(ctx context.Context, username string) (*SubAccount, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]*SubAccount, error)
	CountByParent(ctx context.Context, parentID uuid.UUID) (int64, error)
	// StoreIDs loads only the allowed store set of a sub-account
	StoreIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// AdminRepository persists console admins
type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	FindByUsername(ctx context.Context, username string) (*Admin, error)
	List(ctx context.Context) ([]*Admin, error)
	Count(ctx context.Context) (int64, error)
}
