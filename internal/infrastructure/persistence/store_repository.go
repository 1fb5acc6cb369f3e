package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/storescope"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStoreRepository implements mall.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// BindWithQuota inserts s while holding SELECT ... FOR UPDATE on the owner's
// users row. Concurrent binds of the same owner serialize on that lock, so
// the count check and the insert see a consistent store count.
func (r *GormStoreRepository) BindWithQuota(ctx context.Context, s *mall.Store, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.UserModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", s.UserID).
			Take(&owner).Error
		if err != nil {
			return translate(err, nil, nil)
		}

		var count int64
		if err := tx.Model(&models.StoreModel{}).Where("user_id = ?", s.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return mall.ErrStoreQuotaFull
		}

		var bound int64
		err = tx.Model(&models.StoreModel{}).
			Where("mall_id = ? AND external_id = ?", s.MallID, s.ExternalID).
			Count(&bound).Error
		if err != nil {
			return err
		}
		if bound > 0 {
			return mall.ErrStoreBound
		}

		return translate(tx.Create(models.StoreModelFromDomain(s)).Error, nil, mall.ErrStoreBound)
	})
}

// Update saves a store
func (r *GormStoreRepository) Update(ctx context.Context, s *mall.Store) error {
	err := r.db.WithContext(ctx).Save(models.StoreModelFromDomain(s)).Error
	return translate(err, nil, mall.ErrStoreBound)
}

// Delete unbinds a store of userID together with its sub-account
// assignments, settlement rows and cost prices.
func (r *GormStoreRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.StoreModel{})
		if err := checkAffected(result); err != nil {
			return err
		}
		for _, m := range []any{&models.SubAccountStoreModel{}, &models.SettlementRecordModel{}, &models.CostPriceModel{}} {
			if err := tx.Where("store_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a store by ID
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*mall.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// List returns the stores visible under cond, oldest binding first
func (r *GormStoreRepository) List(ctx context.Context, cond mall.Condition, p shared.Pagination) ([]*mall.Store, int64, error) {
	query := storescope.Apply(r.db.WithContext(ctx).Model(&models.StoreModel{}), cond, storescope.Stores).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := p.Normalize()
	var rows []models.StoreModel
	err := query.Order("stores.bound_at").Order("stores.id").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	stores := make([]*mall.Store, len(rows))
	for i := range rows {
		stores[i] = rows[i].ToDomain()
	}
	return stores, total, nil
}

// CountByUser counts the bindings of userID
func (r *GormStoreRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StoreModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Statuses returns the status of the ids bound to userID
func (r *GormStoreRepository) Statuses(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]mall.StoreStatus, error) {
	out := make(map[uuid.UUID]mall.StoreStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID     string
		Status string
	}
	err := r.db.WithContext(ctx).Model(&models.StoreModel{}).
		Select("id", "status").
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, err
		}
		out[id] = mall.StoreStatus(row.Status)
	}
	return out, nil
}

// MarkOverQuota keeps the limit oldest bindings of userID active and marks
// the rest expired. It returns the number of expired bindings.
func (r *GormStoreRepository) MarkOverQuota(ctx context.Context, userID uuid.UUID, limit int) (int64, error) {
	var expired int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raw []string
		err := tx.Model(&models.StoreModel{}).
			Where("user_id = ?", userID).
			Order("bound_at").Order("id").
			Pluck("id", &raw).Error
		if err != nil {
			return err
		}
		ids, err := parseIDs(raw)
		if err != nil {
			return err
		}
		if limit < 0 {
			limit = 0
		}
		if limit > len(ids) {
			limit = len(ids)
		}

		if keep := ids[:limit]; len(keep) > 0 {
			err := tx.Model(&models.StoreModel{}).
				Where("id IN ?", keep).
				Update("status", string(mall.StoreStatusActive)).Error
			if err != nil {
				return err
			}
		}
		if over := ids[limit:]; len(over) > 0 {
			err := tx.Model(&models.StoreModel{}).
				Where("id IN ?", over).
				Update("status", string(mall.StoreStatusExpired)).Error
			if err != nil {
				return err
			}
			expired = int64(len(over))
		}
		return nil
	})
	return expired, err
}

// Ensure GormStoreRepository implements mall.StoreRepository
var _ mall.StoreRepository = (*GormStoreRepository)(nil)
