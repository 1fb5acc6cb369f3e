package mall

import (
	"context"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// MallRepository persists the mall catalog
type MallRepository interface {
	Create(ctx context.Context, m *Mall) error
	Update(ctx context.Context, m *Mall) error
	FindByID(ctx context.Context, id uuid.UUID) (*Mall, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, enabledOnly bool) ([]*Mall, error)
}

// StoreRepository persists store bindings
type StoreRepository interface {
	// BindWithQuota inserts s under a pessimistic lock on the owner row so
	// that concurrent binds cannot push the owner past limit. It fails with
	// ErrStoreQuotaFull or ErrStoreBound.
	BindWithQuota(ctx context.Context, s *Store, limit int) error
	Update(ctx context.Context, s *Store) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Store, error)
	List(ctx context.Context, cond Condition, p shared.Pagination) ([]*Store, int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// Statuses returns the status of each of ids bound to userID; unknown ids
	// are absent from the map
	Statuses(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]StoreStatus, error)
	// MarkOverQuota flags the newest bindings beyond limit as expired and the
	// rest as active. It returns the number of expired bindings.
	MarkOverQuota(ctx context.Context, userID uuid.UUID, limit int) (int64, error)
}
