package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
)

// MallModel is a row of the mall catalog
type MallModel struct {
	BaseModel
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex:uk_malls_code"`
	Name     string `gorm:"type:varchar(100);not null"`
	Platform string `gorm:"type:varchar(50);not null"`
	Region   string `gorm:"type:varchar(20)"`
	Currency string `gorm:"type:varchar(10)"`
	Enabled  bool   `gorm:"not null;default:true"`
	Sort     int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (MallModel) TableName() string {
	return "malls"
}

// ToDomain converts the model to a domain Mall
func (m *MallModel) ToDomain() *mall.Mall {
	return &mall.Mall{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Platform:   m.Platform,
		Region:     m.Region,
		Currency:   m.Currency,
		Enabled:    m.Enabled,
		Sort:       m.Sort,
	}
}

// MallModelFromDomain converts a domain Mall to its model
func MallModelFromDomain(d *mall.Mall) *MallModel {
	m := &MallModel{
		Code:     d.Code,
		Name:     d.Name,
		Platform: d.Platform,
		Region:   d.Region,
		Currency: d.Currency,
		Enabled:  d.Enabled,
		Sort:     d.Sort,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// StoreModel is a store binding. (mall_id, external_id) is bound at most once.
type StoreModel struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:char(36);not null;index:idx_stores_user"`
	MallID     uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:uk_stores_mall_external,priority:1"`
	Name       string    `gorm:"type:varchar(100);not null"`
	ExternalID string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_stores_mall_external,priority:2"`
	Status     string    `gorm:"type:varchar(20);not null;default:active"`
	BoundAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the model to a domain Store
func (m *StoreModel) ToDomain() *mall.Store {
	return &mall.Store{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		MallID:     m.MallID,
		Name:       m.Name,
		ExternalID: m.ExternalID,
		Status:     mall.StoreStatus(m.Status),
		BoundAt:    m.BoundAt.UTC(),
	}
}

// StoreModelFromDomain converts a domain Store to its model
func StoreModelFromDomain(s *mall.Store) *StoreModel {
	m := &StoreModel{
		UserID:     s.UserID,
		MallID:     s.MallID,
		Name:       s.Name,
		ExternalID: s.ExternalID,
		Status:     string(s.Status),
		BoundAt:    s.BoundAt,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
