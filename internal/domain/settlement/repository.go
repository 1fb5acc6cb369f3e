package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Filter narrows settlement reads beyond the store scope
type Filter struct {
	Status    Status     `json:"status,omitempty"`
	SKU       string     `json:"sku,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// CostFilter narrows cost price reads beyond the store scope
type CostFilter struct {
	SKU string `json:"sku,omitempty"`
}

// RecordKey is the natural key of an imported record
type RecordKey struct {
	StoreID uuid.UUID
	OrderNo string
	SKU     string
}

// Key returns the natural key of r
func (r *Record) Key() RecordKey {
	return RecordKey{StoreID: r.StoreID, OrderNo: r.OrderNo, SKU: r.SKU}
}

// SummaryRow is one status and currency bucket aggregated by the database
type SummaryRow struct {
	Status      Status
	Currency    string
	Revenue     decimal.Decimal
	Cost        decimal.Decimal
	Count       int64
	MissingCost int64
}

// SummaryFromRows builds a Summary from aggregated buckets
func SummaryFromRows(rows []SummaryRow) Summary {
	var s Summary
	for _, r := range rows {
		s.add(r.Currency, r.Status, r.Revenue, r.Cost, r.Count, r.MissingCost)
	}
	s.Finish()
	return s
}

// RecordRepository persists settlement records
type RecordRepository interface {
	List(ctx context.Context, cond mall.Condition, f Filter, p shared.Pagination) ([]*Record, int64, error)
	Summary(ctx context.Context, cond mall.Condition, f Filter) ([]SummaryRow, error)
	FindByKeys(ctx context.Context, userID uuid.UUID, keys []RecordKey) ([]*Record, error)
	// Save writes an import batch in one transaction. Rows in created that
	// collide on the natural key with a concurrent import are updated.
	Save(ctx context.Context, created, updated []*Record) error
}

// CostPriceRepository persists cost prices
type CostPriceRepository interface {
	Upsert(ctx context.Context, prices []*CostPrice) error
	Lookup(ctx context.Context, userID uuid.UUID, keys []CostKey) (map[CostKey]decimal.Decimal, error)
	List(ctx context.Context, cond mall.Condition, f CostFilter, p shared.Pagination) ([]*CostPrice, int64, error)
}
