package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/models"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence/storescope"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 200

// GormSettlementRepository implements settlement.RecordRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// scoped starts a query on settlement_records aliased as r, restricted to cond and f
func (r *GormSettlementRepository) scoped(ctx context.Context, cond mall.Condition, f settlement.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Table("settlement_records AS r")
	query = storescope.Apply(query, cond, storescope.SettlementRecords)

	if f.Status != "" {
		query = query.Where("r.status = ?", string(f.Status))
	}
	if f.SKU != "" {
		query = query.Where("r.sku = ?", f.SKU)
	}
	if f.StartDate != nil {
		query = query.Where("r.ordered_at >= ?", dayStart(*f.StartDate))
	}
	if f.EndDate != nil {
		// the end date is inclusive at day granularity
		query = query.Where("r.ordered_at < ?", dayStart(*f.EndDate).AddDate(0, 0, 1))
	}
	return query
}

// List returns a page of records under cond, newest order first
func (r *GormSettlementRepository) List(ctx context.Context, cond mall.Condition, f settlement.Filter, p shared.Pagination) ([]*settlement.Record, int64, error) {
	query := r.scoped(ctx, cond, f).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := p.Normalize()
	var rows []models.SettlementRecordModel
	err := query.Select("r.*").
		Order("r.ordered_at DESC").Order("r.id").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]*settlement.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, total, nil
}

type summaryRow struct {
	Status      string
	Currency    string
	Revenue     decimal.Decimal
	Cost        decimal.Decimal
	Count       int64
	MissingCost int64
}

// Summary aggregates the records under cond per status and currency. Cost
// uses the matching cost price and counts as zero where none is recorded.
func (r *GormSettlementRepository) Summary(ctx context.Context, cond mall.Condition, f settlement.Filter) ([]settlement.SummaryRow, error) {
	var rows []summaryRow
	err := r.scoped(ctx, cond, f).
		Joins("LEFT JOIN cost_prices AS c ON c.store_id = r.store_id AND c.sku = r.sku").
		Select(`r.status AS status,
			r.currency AS currency,
			COALESCE(SUM(r.avg_price * r.volume), 0) AS revenue,
			COALESCE(SUM(COALESCE(c.cost_price, 0) * r.volume), 0) AS cost,
			COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN c.id IS NULL THEN 1 ELSE 0 END), 0) AS missing_cost`).
		Group("r.status, r.currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]settlement.SummaryRow, len(rows))
	for i, row := range rows {
		out[i] = settlement.SummaryRow{
			Status:      settlement.Status(row.Status),
			Currency:    row.Currency,
			Revenue:     row.Revenue,
			Cost:        row.Cost,
			Count:       row.Count,
			MissingCost: row.MissingCost,
		}
	}
	return out, nil
}

// FindByKeys loads the records of userID matching any of keys
func (r *GormSettlementRepository) FindByKeys(ctx context.Context, userID uuid.UUID, keys []settlement.RecordKey) ([]*settlement.Record, error) {
	if len(keys) == 0 {
		return []*settlement.Record{}, nil
	}

	want := make(map[settlement.RecordKey]struct{}, len(keys))
	storeSet := make(map[uuid.UUID]struct{})
	orderSet := make(map[string]struct{})
	for _, k := range keys {
		want[k] = struct{}{}
		storeSet[k.StoreID] = struct{}{}
		orderSet[k.OrderNo] = struct{}{}
	}
	storeIDs := make([]uuid.UUID, 0, len(storeSet))
	for id := range storeSet {
		storeIDs = append(storeIDs, id)
	}
	orderNos := make([]string, 0, len(orderSet))
	for no := range orderSet {
		orderNos = append(orderNos, no)
	}

	var rows []models.SettlementRecordModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id IN ? AND order_no IN ?", userID, storeIDs, orderNos).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]*settlement.Record, 0, len(rows))
	for i := range rows {
		rec := rows[i].ToDomain()
		if _, ok := want[rec.Key()]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Save writes an import batch in one transaction
func (r *GormSettlementRepository) Save(ctx context.Context, created, updated []*settlement.Record) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range updated {
			if err := tx.Save(models.SettlementRecordModelFromDomain(rec)).Error; err != nil {
				return err
			}
		}
		if len(created) == 0 {
			return nil
		}

		rows := make([]*models.SettlementRecordModel, len(created))
		for i, rec := range created {
			rows[i] = models.SettlementRecordModelFromDomain(rec)
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "store_id"}, {Name: "order_no"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_name", "volume", "avg_price", "currency", "status", "ordered_at", "settled_at", "updated_at",
			}),
		}).CreateInBatches(rows, importBatchSize).Error
	})
}

// Ensure GormSettlementRepository implements settlement.RecordRepository
var _ settlement.RecordRepository = (*GormSettlementRepository)(nil)

// GormCostPriceRepository implements settlement.CostPriceRepository using GORM
type GormCostPriceRepository struct {
	db *gorm.DB
}

// NewGormCostPriceRepository creates a new GormCostPriceRepository
func NewGormCostPriceRepository(db *gorm.DB) *GormCostPriceRepository {
	return &GormCostPriceRepository{db: db}
}

// Upsert inserts prices, replacing the cost of an existing (store, sku)
func (r *GormCostPriceRepository) Upsert(ctx context.Context, prices []*settlement.CostPrice) error {
	if len(prices) == 0 {
		return nil
	}
	rows := make([]*models.CostPriceModel, len(prices))
	for i, p := range prices {
		rows[i] = models.CostPriceModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"cost_price", "updated_at"}),
	}).CreateInBatches(rows, importBatchSize).Error
}

// Lookup returns the cost prices of userID for keys. Missing keys are absent.
func (r *GormCostPriceRepository) Lookup(ctx context.Context, userID uuid.UUID, keys []settlement.CostKey) (map[settlement.CostKey]decimal.Decimal, error) {
	out := make(map[settlement.CostKey]decimal.Decimal, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	storeSet := make(map[uuid.UUID]struct{})
	skuSet := make(map[string]struct{})
	for _, k := range keys {
		storeSet[k.StoreID] = struct{}{}
		skuSet[k.SKU] = struct{}{}
	}
	storeIDs := make([]uuid.UUID, 0, len(storeSet))
	for id := range storeSet {
		storeIDs = append(storeIDs, id)
	}
	skus := make([]string, 0, len(skuSet))
	for sku := range skuSet {
		skus = append(skus, sku)
	}

	var rows []models.CostPriceModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id IN ? AND sku IN ?", userID, storeIDs, skus).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[settlement.CostKey{StoreID: row.StoreID, SKU: row.SKU}] = row.CostPrice
	}
	return out, nil
}

// List returns a page of cost prices under cond, most recently changed first
func (r *GormCostPriceRepository) List(ctx context.Context, cond mall.Condition, f settlement.CostFilter, p shared.Pagination) ([]*settlement.CostPrice, int64, error) {
	query := storescope.Apply(r.db.WithContext(ctx).Model(&models.CostPriceModel{}), cond, storescope.CostPrices)
	if f.SKU != "" {
		query = query.Where("cost_prices.sku = ?", f.SKU)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := p.Normalize()
	var rows []models.CostPriceModel
	err := query.Order("cost_prices.updated_at DESC").Order("cost_prices.id").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	prices := make([]*settlement.CostPrice, len(rows))
	for i := range rows {
		prices[i] = rows[i].ToDomain()
	}
	return prices, total, nil
}

// Ensure GormCostPriceRepository implements settlement.CostPriceRepository
var _ settlement.CostPriceRepository = (*GormCostPriceRepository)(nil)

// dayStart truncates t to midnight UTC
func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
