package models

import (
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/shopspring/decimal"
)

// MembershipLevelModel is a row of the membership level catalog
type MembershipLevelModel struct {
	BaseModel
	Code            string          `gorm:"type:varchar(50);not null;uniqueIndex:uk_membership_levels_code"`
	Name            string          `gorm:"type:varchar(100);not null"`
	StoreQuota      int             `gorm:"not null;default:0"`
	SubAccountQuota int             `gorm:"not null;default:0"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DurationDays    int             `gorm:"not null;default:0"`
	IsDefault       bool            `gorm:"not null;default:false"`
	Enabled         bool            `gorm:"not null;default:true"`
	Sort            int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (MembershipLevelModel) TableName() string {
	return "membership_levels"
}

// ToDomain converts the model to a domain Level
func (m *MembershipLevelModel) ToDomain() *membership.Level {
	return &membership.Level{
		BaseEntity:      m.BaseModel.ToDomain(),
		Code:            m.Code,
		Name:            m.Name,
		StoreQuota:      m.StoreQuota,
		SubAccountQuota: m.SubAccountQuota,
		Price:           m.Price,
		DurationDays:    m.DurationDays,
		IsDefault:       m.IsDefault,
		Enabled:         m.Enabled,
		Sort:            m.Sort,
	}
}

// MembershipLevelModelFromDomain converts a domain Level to its model
func MembershipLevelModelFromDomain(l *membership.Level) *MembershipLevelModel {
	m := &MembershipLevelModel{
		Code:            l.Code,
		Name:            l.Name,
		StoreQuota:      l.StoreQuota,
		SubAccountQuota: l.SubAccountQuota,
		Price:           l.Price,
		DurationDays:    l.DurationDays,
		IsDefault:       l.IsDefault,
		Enabled:         l.Enabled,
		Sort:            l.Sort,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}
