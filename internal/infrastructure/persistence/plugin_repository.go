package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var errPluginCodeTaken = shared.NewDomainError("ALREADY_EXISTS", "Plugin code already exists")

// GormPluginRepository implements plugin.Repository using GORM
type GormPluginRepository struct {
	db *gorm.DB
}

// NewGormPluginRepository creates a new GormPluginRepository
func NewGormPluginRepository(db *gorm.DB) *GormPluginRepository {
	return &GormPluginRepository{db: db}
}

// Create inserts a plugin
func (r *GormPluginRepository) Create(ctx context.Context, p *plugin.Plugin) error {
	err := r.db.WithContext(ctx).Create(models.PluginModelFromDomain(p)).Error
	return translate(err, nil, errPluginCodeTaken)
}

// Update saves a plugin
func (r *GormPluginRepository) Update(ctx context.Context, p *plugin.Plugin) error {
	err := r.db.WithContext(ctx).Save(models.PluginModelFromDomain(p)).Error
	return translate(err, nil, errPluginCodeTaken)
}

// Delete removes a plugin
func (r *GormPluginRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return checkAffected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PluginModel{}))
}

// FindByID finds a plugin by ID
func (r *GormPluginRepository) FindByID(ctx context.Context, id uuid.UUID) (*plugin.Plugin, error) {
	var model models.PluginModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// ExistsByCode checks if a plugin code is taken
func (r *GormPluginRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PluginModel{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List returns plugins with the given status, or all when status is empty
func (r *GormPluginRepository) List(ctx context.Context, status plugin.Status) ([]*plugin.Plugin, error) {
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var rows []models.PluginModel
	if err := query.Order("sort").Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	plugins := make([]*plugin.Plugin, len(rows))
	for i := range rows {
		plugins[i] = rows[i].ToDomain()
	}
	return plugins, nil
}

// Ensure GormPluginRepository implements plugin.Repository
var _ plugin.Repository = (*GormPluginRepository)(nil)
