package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements account.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a main account
func (r *GormUserRepository) Create(ctx context.Context, u *account.User) error {
	err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(u)).Error
	return translate(err, nil, account.ErrUsernameTaken)
}

// Update saves every column of u
func (r *GormUserRepository) Update(ctx context.Context, u *account.User) error {
	err := r.db.WithContext(ctx).Save(models.UserModelFromDomain(u)).Error
	return translate(err, nil, account.ErrUsernameTaken)
}

// FindByID finds a main account by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// FindByUsername finds a main account by its normalized username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*account.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).
		Where("username = ?", account.NormalizeUsername(username)).
		First(&model).Error
	if err != nil {
		return nil, translate(err, nil, nil)
	}
	return model.ToDomain(), nil
}

// ExistsByUsername checks if a username is taken
func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("username = ?", account.NormalizeUsername(username)).
		Count(&count).Error
	return count > 0, err
}

// List returns a filtered page of main accounts, newest first
func (r *GormUserRepository) List(ctx context.Context, filter account.UserFilter) ([]*account.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UserModel{})

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		like := "%" + kw + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR phone LIKE ? OR nickname LIKE ?", like, like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Pagination.Normalize()
	var rows []models.UserModel
	err := query.Order("created_at DESC").Order("id").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	users := make([]*account.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

// ListMembershipExpired returns users whose membership expired in (since, until]
func (r *GormUserRepository) ListMembershipExpired(ctx context.Context, since, until time.Time) ([]*account.User, error) {
	var rows []models.UserModel
	err := r.db.WithContext(ctx).
		Where("membership_expires_at > ? AND membership_expires_at <= ?", since, until).
		Order("membership_expires_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	users := make([]*account.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}

// Ensure GormUserRepository implements account.UserRepository
var _ account.UserRepository = (*GormUserRepository)(nil)
