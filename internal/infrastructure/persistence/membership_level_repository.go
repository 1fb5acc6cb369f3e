package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var errLevelCodeTaken = shared.NewDomainError("ALREADY_EXISTS", "Membership level code already exists")

// GormLevelRepository implements membership.LevelRepository using GORM
type GormLevelRepository struct {
	db *gorm.DB
}

// NewGormLevelRepository creates a new GormLevelRepository
func NewGormLevelRepository(db *gorm.DB) *GormLevelRepository {
	return &GormLevelRepository{db: db}
}

// Create inserts a level. A new default level clears the previous default.
func (r *GormLevelRepository) Create(ctx context.Context, l *membership.Level) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, l); err != nil {
			return err
		}
		return translate(tx.Create(models.MembershipLevelModelFromDomain(l)).Error, nil, errLevelCodeTaken)
	})
}

// Update saves a level. A level becoming default clears the previous default.
func (r *GormLevelRepository) Update(ctx context.Context, l *membership.Level) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, l); err != nil {
			return err
		}
		return translate(tx.Save(models.MembershipLevelModelFromDomain(l)).Error, nil, errLevelCodeTaken)
	})
}

func clearDefault(tx *gorm.DB, l *membership.Level) error {
	if !l.IsDefault {
		return nil
	}
	return tx.Model(&models.MembershipLevelModel{}).
		Where("is_default = ? AND id <> ?", true, l.ID).
		Update("is_default", false).Error
}

// Delete removes a level
func (r *GormLevelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return checkAffected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MembershipLevelModel{}))
}

// FindByID finds a level by ID
func (r *GormLevelRepository) FindByID(ctx context.Context, id uuid.UUID) (*membership.Level, error) {
	var model models.MembershipLevelModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// FindDefault returns the level granted to accounts without membership
func (r *GormLevelRepository) FindDefault(ctx context.Context) (*membership.Level, error) {
	var model models.MembershipLevelModel
	err := r.db.WithContext(ctx).Where("is_default = ?", true).Order("sort").Take(&model).Error
	if err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// ExistsByCode checks if a level code is taken
func (r *GormLevelRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MembershipLevelModel{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List returns levels ordered by sort then code
func (r *GormLevelRepository) List(ctx context.Context, enabledOnly bool) ([]*membership.Level, error) {
	query := r.db.WithContext(ctx)
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var rows []models.MembershipLevelModel
	if err := query.Order("sort").Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	levels := make([]*membership.Level, len(rows))
	for i := range rows {
		levels[i] = rows[i].ToDomain()
	}
	return levels, nil
}

// InUse reports whether any user holds the level
func (r *GormLevelRepository) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("membership_level_id = ?", id).Count(&count).Error
	return count > 0, err
}

// Ensure GormLevelRepository implements membership.LevelRepository
var _ membership.LevelRepository = (*GormLevelRepository)(nil)
