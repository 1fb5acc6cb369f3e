package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// LineInfo is a settlement record with its profit figures
type LineInfo struct {
	ID          uuid.UUID         `json:"id"`
	StoreID     uuid.UUID         `json:"store_id"`
	OrderNo     string            `json:"order_no"`
	SKU         string            `json:"sku"`
	ProductName string            `json:"product_name"`
	Volume      int64             `json:"volume"`
	AvgPrice    decimal.Decimal   `json:"avg_price"`
	Currency    string            `json:"currency"`
	Status      settlement.Status `json:"status"`
	OrderedAt   time.Time         `json:"ordered_at"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
	CostPrice   decimal.Decimal   `json:"cost_price"`
	CostMissing bool              `json:"cost_missing"`
	Revenue     decimal.Decimal   `json:"revenue"`
	Cost        decimal.Decimal   `json:"cost"`
	GrossProfit decimal.Decimal   `json:"gross_profit"`
	ProfitRate  decimal.Decimal   `json:"profit_rate"`
}

// ToLineInfo converts a computed line
func ToLineInfo(l settlement.Line) LineInfo {
	l = l.Rounded()
	r := l.Record
	return LineInfo{
		ID:          r.ID,
		StoreID:     r.StoreID,
		OrderNo:     r.OrderNo,
		SKU:         r.SKU,
		ProductName: r.ProductName,
		Volume:      r.Volume,
		AvgPrice:    r.AvgPrice,
		Currency:    r.Currency,
		Status:      r.Status,
		OrderedAt:   r.OrderedAt,
		SettledAt:   r.SettledAt,
		CostPrice:   l.CostPrice,
		CostMissing: l.CostMissing,
		Revenue:     l.Revenue,
		Cost:        l.Cost,
		GrossProfit: l.GrossProfit,
		ProfitRate:  l.ProfitRate,
	}
}

// CostPriceInfo is a recorded unit cost
type CostPriceInfo struct {
	ID        uuid.UUID       `json:"id"`
	StoreID   uuid.UUID       `json:"store_id"`
	SKU       string          `json:"sku"`
	CostPrice decimal.Decimal `json:"cost_price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToCostPriceInfo converts a domain cost price
func ToCostPriceInfo(c *settlement.CostPrice) CostPriceInfo {
	return CostPriceInfo{
		ID:        c.ID,
		StoreID:   c.StoreID,
		SKU:       c.SKU,
		CostPrice: c.CostPrice,
		UpdatedAt: c.UpdatedAt,
	}
}

// CostPriceInput sets the unit cost of one SKU
type CostPriceInput struct {
	StoreID   uuid.UUID
	SKU       string
	CostPrice decimal.Decimal
}

// ImportResult reports what an import batch changed
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
