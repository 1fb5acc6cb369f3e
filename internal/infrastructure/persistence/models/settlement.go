package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// SettlementRecordModel is one settled order line.
// (store_id, order_no, sku) is the natural key used by imports.
type SettlementRecordModel struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index:idx_settlement_user_store,priority:1"`
	StoreID     uuid.UUID       `gorm:"type:char(36);not null;index:idx_settlement_user_store,priority:2;uniqueIndex:uk_settlement_line,priority:1"`
	OrderNo     string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_settlement_line,priority:2"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:uk_settlement_line,priority:3"`
	ProductName string          `gorm:"type:varchar(255)"`
	Volume      int64           `gorm:"not null;default:0"`
	AvgPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string          `gorm:"type:varchar(10)"`
	Status      string          `gorm:"type:varchar(20);not null;index:idx_settlement_status"`
	OrderedAt   time.Time       `gorm:"not null;index:idx_settlement_ordered_at"`
	SettledAt   *time.Time
}

// TableName returns the table name for GORM
func (SettlementRecordModel) TableName() string {
	return "settlement_records"
}

// ToDomain converts the model to a domain Record
func (m *SettlementRecordModel) ToDomain() *settlement.Record {
	return &settlement.Record{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		StoreID:     m.StoreID,
		OrderNo:     m.OrderNo,
		SKU:         m.SKU,
		ProductName: m.ProductName,
		Volume:      m.Volume,
		AvgPrice:    m.AvgPrice,
		Currency:    m.Currency,
		Status:      settlement.Status(m.Status),
		OrderedAt:   m.OrderedAt.UTC(),
		SettledAt:   utcPtr(m.SettledAt),
	}
}

// SettlementRecordModelFromDomain converts a domain Record to its model
func SettlementRecordModelFromDomain(r *settlement.Record) *SettlementRecordModel {
	m := &SettlementRecordModel{
		UserID:      r.UserID,
		StoreID:     r.StoreID,
		OrderNo:     r.OrderNo,
		SKU:         r.SKU,
		ProductName: r.ProductName,
		Volume:      r.Volume,
		AvgPrice:    r.AvgPrice,
		Currency:    r.Currency,
		Status:      string(r.Status),
		OrderedAt:   r.OrderedAt,
		SettledAt:   r.SettledAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// CostPriceModel is the unit cost of a SKU in a store
type CostPriceModel struct {
	BaseModel
	UserID    uuid.UUID       `gorm:"type:char(36);not null;index:idx_cost_prices_user"`
	StoreID   uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex:uk_cost_prices_store_sku,priority:1"`
	SKU       string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:uk_cost_prices_store_sku,priority:2"`
	CostPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (CostPriceModel) TableName() string {
	return "cost_prices"
}

// ToDomain converts the model to a domain CostPrice
func (m *CostPriceModel) ToDomain() *settlement.CostPrice {
	return &settlement.CostPrice{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		StoreID:    m.StoreID,
		SKU:        m.SKU,
		CostPrice:  m.CostPrice,
	}
}

// CostPriceModelFromDomain converts a domain CostPrice to its model
func CostPriceModelFromDomain(c *settlement.CostPrice) *CostPriceModel {
	m := &CostPriceModel{
		UserID:    c.UserID,
		StoreID:   c.StoreID,
		SKU:       c.SKU,
		CostPrice: c.CostPrice,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}
