// Package models holds the GORM row types and their mapping to domain
// entities. Column types are written for MySQL; SQLite accepts them through
// type affinity.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// All lists every model, in dependency order, for AutoMigrate in tests and
// the sqlite development mode.
func All() []any {
	return []any{
		&UserModel{},
		&SubAccountModel{},
		&SubAccountStoreModel{},
		&AdminModel{},
		&MallModel{},
		&StoreModel{},
		&MembershipLevelModel{},
		&SettlementRecordModel{},
		&CostPriceModel{},
		&PluginModel{},
	}
}
