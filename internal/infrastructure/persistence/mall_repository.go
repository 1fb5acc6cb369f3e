package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var errMallCodeTaken = shared.NewDomainError("ALREADY_EXISTS", "Mall code already exists")

// GormMallRepository implements mall.MallRepository using GORM
type GormMallRepository struct {
	db *gorm.DB
}

// NewGormMallRepository creates a new GormMallRepository
func NewGormMallRepository(db *gorm.DB) *GormMallRepository {
	return &GormMallRepository{db: db}
}

// Create inserts a mall
func (r *GormMallRepository) Create(ctx context.Context, m *mall.Mall) error {
	err := r.db.WithContext(ctx).Create(models.MallModelFromDomain(m)).Error
	return translate(err, nil, errMallCodeTaken)
}

// Update saves a mall
func (r *GormMallRepository) Update(ctx context.Context, m *mall.Mall) error {
	err := r.db.WithContext(ctx).Save(models.MallModelFromDomain(m)).Error
	return translate(err, nil, errMallCodeTaken)
}

// FindByID finds a mall by ID
func (r *GormMallRepository) FindByID(ctx context.Context, id uuid.UUID) (*mall.Mall, error) {
	var model models.MallModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// ExistsByCode checks if a mall code is taken
func (r *GormMallRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MallModel{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List returns the catalog ordered by sort then code
func (r *GormMallRepository) List(ctx context.Context, enabledOnly bool) ([]*mall.Mall, error) {
	query := r.db.WithContext(ctx)
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var rows []models.MallModel
	if err := query.Order("sort").Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	malls := make([]*mall.Mall, len(rows))
	for i := range rows {
		malls[i] = rows[i].ToDomain()
	}
	return malls, nil
}

// Ensure GormMallRepository implements mall.MallRepository
var _ mall.MallRepository = (*GormMallRepository)(nil)
