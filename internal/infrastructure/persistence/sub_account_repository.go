package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSubAccountRepository implements account.SubAccountRepository using GORM.
// Store assignments are kept in sub_account_stores and rewritten with the row.
type GormSubAccountRepository struct {
	db *gorm.DB
}

// NewGormSubAccountRepository creates a new GormSubAccountRepository
func NewGormSubAccountRepository(db *gorm.DB) *GormSubAccountRepository {
	return &GormSubAccountRepository{db: db}
}

// Create inserts a sub-account and its store assignments
func (r *GormSubAccountRepository) Create(ctx context.Context, s *account.SubAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.SubAccountModelFromDomain(s)).Error; err != nil {
			return translate(err, nil, account.ErrUsernameTaken)
		}
		return insertAssignments(tx, s)
	})
}

// Update saves the sub-account and replaces its store assignments
func (r *GormSubAccountRepository) Update(ctx context.Context, s *account.SubAccount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.SubAccountModelFromDomain(s)).Error; err != nil {
			return translate(err, nil, account.ErrUsernameTaken)
		}
		if err := tx.Where("sub_account_id = ?", s.ID).Delete(&models.SubAccountStoreModel{}).Error; err != nil {
			return err
		}
		return insertAssignments(tx, s)
	})
}

func insertAssignments(tx *gorm.DB, s *account.SubAccount) error {
	rows := models.SubAccountStoreModels(s, time.Now().UTC())
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// Delete removes a sub-account of parentID together with its assignments
func (r *GormSubAccountRepository) Delete(ctx context.Context, parentID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND parent_id = ?", id, parentID).Delete(&models.SubAccountModel{})
		if err := checkAffected(result); err != nil {
			return err
		}
		return tx.Where("sub_account_id = ?", id).Delete(&models.SubAccountStoreModel{}).Error
	})
}

// FindByID finds a sub-account with its assignments
func (r *GormSubAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.SubAccount, error) {
	var model models.SubAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	ids, err := r.StoreIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(ids), nil
}

// FindByUsername finds a sub-account by its normalized username
func (r *GormSubAccountRepository) FindByUsername(ctx context.Context, username string) (*account.SubAccount, error) {
	var model models.SubAccountModel
	err := r.db.WithContext(ctx).
		Where("username = ?", account.NormalizeUsername(username)).
		First(&model).Error
	if err != nil {
		return nil, translate(err, nil, nil)
	}
	ids, err := r.StoreIDs(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	return model.ToDomain(ids), nil
}

// ExistsByUsername checks if a sub-account username is taken
func (r *GormSubAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SubAccountModel{}).
		Where("username = ?", account.NormalizeUsername(username)).
		Count(&count).Error
	return count > 0, err
}

// ListByParent returns every sub-account of parentID with assignments loaded
func (r *GormSubAccountRepository) ListByParent(ctx context.Context, parentID uuid.UUID) ([]*account.SubAccount, error) {
	var rows []models.SubAccountModel
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*account.SubAccount{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var links []models.SubAccountStoreModel
	err = r.db.WithContext(ctx).
		Where("sub_account_id IN ?", ids).
		Order("created_at").Order("store_id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	bySub := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for _, l := range links {
		bySub[l.SubAccountID] = append(bySub[l.SubAccountID], l.StoreID)
	}

	subs := make([]*account.SubAccount, len(rows))
	for i := range rows {
		subs[i] = rows[i].ToDomain(bySub[rows[i].ID])
	}
	return subs, nil
}

// CountByParent counts the sub-accounts of parentID
func (r *GormSubAccountRepository) CountByParent(ctx context.Context, parentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SubAccountModel{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// StoreIDs loads only the allowed store set of a sub-account
func (r *GormSubAccountRepository) StoreIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var raw []string
	err := r.db.WithContext(ctx).Model(&models.SubAccountStoreModel{}).
		Where("sub_account_id = ?", id).
		Order("created_at").Order("store_id").
		Pluck("store_id", &raw).Error
	if err != nil {
		return nil, err
	}
	return parseIDs(raw)
}

// Ensure GormSubAccountRepository implements account.SubAccountRepository
var _ account.SubAccountRepository = (*GormSubAccountRepository)(nil)

// GormAdminRepository implements account.AdminRepository using GORM
type GormAdminRepository struct {
	db *gorm.DB
}

// NewGormAdminRepository creates a new GormAdminRepository
func NewGormAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// Create inserts an admin
func (r *GormAdminRepository) Create(ctx context.Context, a *account.Admin) error {
	err := r.db.WithContext(ctx).Create(models.AdminModelFromDomain(a)).Error
	return translate(err, nil, account.ErrUsernameTaken)
}

// FindByID finds an admin by ID
func (r *GormAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Admin, error) {
	var model models.AdminModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// FindByUsername finds an admin by its normalized username
func (r *GormAdminRepository) FindByUsername(ctx context.Context, username string) (*account.Admin, error) {
	var model models.AdminModel
	err := r.db.WithContext(ctx).
		Where("username = ?", account.NormalizeUsername(username)).
		First(&model).Error
	if err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// List returns every admin ordered by username
func (r *GormAdminRepository) List(ctx context.Context) ([]*account.Admin, error) {
	var rows []models.AdminModel
	if err := r.db.WithContext(ctx).Order("username").Find(&rows).Error; err != nil {
		return nil, err
	}
	admins := make([]*account.Admin, len(rows))
	for i := range rows {
		admins[i] = rows[i].ToDomain()
	}
	return admins, nil
}

// Count counts admins
func (r *GormAdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AdminModel{}).Count(&count).Error
	return count, err
}

// Ensure GormAdminRepository implements account.AdminRepository
var _ account.AdminRepository = (*GormAdminRepository)(nil)
