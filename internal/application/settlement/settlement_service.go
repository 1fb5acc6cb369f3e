package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MaxImportRows bounds a single import batch
const MaxImportRows = 1000

var (
	ErrStoreNotVisible = shared.NewDomainError("FORBIDDEN", "Store is not visible to the current account")
	ErrEmptyImport     = shared.NewDomainError("INVALID_INPUT", "Import batch is empty")
	ErrImportTooLarge  = shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Import batch exceeds %d rows", MaxImportRows))
)

// Service reads and ingests settlement data within the caller's store scope
type Service struct {
	records  settlement.RecordRepository
	costs    settlement.CostPriceRepository
	stores   mall.StoreRepository
	cache    *cache.QueryCache
	metrics  *telemetry.AppMetrics
	logger   *zap.Logger
	renderer StatementRenderer
}

// NewService creates a new settlement Service
func NewService(
	records settlement.RecordRepository,
	costs settlement.CostPriceRepository,
	stores mall.StoreRepository,
	queryCache *cache.QueryCache,
	metrics *telemetry.AppMetrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		records: records,
		costs:   costs,
		stores:  stores,
		cache:   queryCache,
		metrics: metrics,
		logger:  logger,
	}
}

type listParams struct {
	Kind   string            `json:"kind"`
	Cond   mall.Condition    `json:"cond"`
	Filter settlement.Filter `json:"filter"`
	Page   shared.Pagination `json:"page"`
}

type costListParams struct {
	Cond   mall.Condition        `json:"cond"`
	Filter settlement.CostFilter `json:"filter"`
	Page   shared.Pagination     `json:"page"`
}

// List returns a page of settlement lines with their profit figures
func (s *Service) List(ctx context.Context, p *account.Principal, scope mall.StoreFilter, f settlement.Filter, page shared.Pagination) (shared.Paginated[LineInfo], error) {
	cond := mall.BuildCondition(p, scope)
	page = page.Normalize()
	if cond.Empty {
		return shared.NewPaginated([]LineInfo{}, 0, page), nil
	}

	params := listParams{Kind: "lines", Cond: cond, Filter: f, Page: page}
	return cache.Get(ctx, s.cache, cache.NamespaceSettlements, cond.OwnerID, params,
		func(ctx context.Context) (shared.Paginated[LineInfo], error) {
			records, total, err := s.records.List(ctx, cond, f, page)
			if err != nil {
				return shared.Paginated[LineInfo]{}, err
			}
			keys := make([]settlement.CostKey, len(records))
			for i, r := range records {
				keys[i] = settlement.CostKey{StoreID: r.StoreID, SKU: r.SKU}
			}
			costs, err := s.costs.Lookup(ctx, cond.OwnerID, keys)
			if err != nil {
				return shared.Paginated[LineInfo]{}, err
			}

			lines := settlement.BuildLines(records, costs)
			items := make([]LineInfo, len(lines))
			for i, l := range lines {
				items[i] = ToLineInfo(l)
			}
			return shared.NewPaginated(items, total, page), nil
		})
}

// Summary aggregates every record under the caller's scope and filter
func (s *Service) Summary(ctx context.Context, p *account.Principal, scope mall.StoreFilter, f settlement.Filter) (settlement.Summary, error) {
	cond := mall.BuildCondition(p, scope)
	if cond.Empty {
		return settlement.SummaryFromRows(nil), nil
	}

	params := listParams{Kind: "summary", Cond: cond, Filter: f}
	return cache.Get(ctx, s.cache, cache.NamespaceSettlements, cond.OwnerID, params,
		func(ctx context.Context) (settlement.Summary, error) {
			rows, err := s.records.Summary(ctx, cond, f)
			if err != nil {
				return settlement.Summary{}, err
			}
			return settlement.SummaryFromRows(rows), nil
		})
}

// Import upserts a batch of records keyed by (store, order, sku). The batch
// is rejected as a whole if any row is invalid or names a store outside
// the caller's scope.
func (s *Service) Import(ctx context.Context, p *account.Principal, rows []settlement.RecordInput) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "import",
		telemetry.SpanAttrOwnerID, p.OwnerID, telemetry.SpanAttrRows, len(rows))
	defer span.End()

	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	if len(rows) > MaxImportRows {
		return nil, ErrImportTooLarge
	}

	// later rows of the same key win
	byKey := make(map[settlement.RecordKey]*settlement.Record, len(rows))
	order := make([]settlement.RecordKey, 0, len(rows))
	storeIDs := make([]uuid.UUID, 0)
	for i, in := range rows {
		rec, err := settlement.NewRecord(p.OwnerID, in)
		if err != nil {
			return nil, rowError(i, err)
		}
		key := rec.Key()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
			storeIDs = append(storeIDs, rec.StoreID)
		}
		byKey[key] = rec
	}

	if err := s.checkStores(ctx, p, storeIDs); err != nil {
		return nil, err
	}

	existing, err := s.records.FindByKeys(ctx, p.OwnerID, order)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	found := make(map[settlement.RecordKey]*settlement.Record, len(existing))
	for _, r := range existing {
		found[r.Key()] = r
	}

	var created, updated []*settlement.Record
	for _, key := range order {
		in := byKey[key]
		if cur, ok := found[key]; ok {
			cur.Merge(in)
			updated = append(updated, cur)
			continue
		}
		created = append(created, in)
	}

	if err := s.records.Save(ctx, created, updated); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordImport(ctx, len(created), len(updated))
	s.invalidate(ctx, p.OwnerID, cache.NamespaceSettlements)

	s.logger.Info("Settlement rows imported",
		zap.String("owner_id", p.OwnerID.String()),
		zap.String("account_id", p.AccountID.String()),
		zap.Int("created", len(created)),
		zap.Int("updated", len(updated)))

	return &ImportResult{Created: len(created), Updated: len(updated)}, nil
}

// ListCostPrices returns a page of the cost prices under the caller's scope
func (s *Service) ListCostPrices(ctx context.Context, p *account.Principal, scope mall.StoreFilter, f settlement.CostFilter, page shared.Pagination) (shared.Paginated[CostPriceInfo], error) {
	cond := mall.BuildCondition(p, scope)
	page = page.Normalize()
	if cond.Empty {
		return shared.NewPaginated([]CostPriceInfo{}, 0, page), nil
	}

	params := costListParams{Cond: cond, Filter: f, Page: page}
	return cache.Get(ctx, s.cache, cache.NamespaceCostPrices, cond.OwnerID, params,
		func(ctx context.Context) (shared.Paginated[CostPriceInfo], error) {
			prices, total, err := s.costs.List(ctx, cond, f, page)
			if err != nil {
				return shared.Paginated[CostPriceInfo]{}, err
			}
			items := make([]CostPriceInfo, len(prices))
			for i, c := range prices {
				items[i] = ToCostPriceInfo(c)
			}
			return shared.NewPaginated(items, total, page), nil
		})
}

// UpsertCostPrices records unit costs. Profit figures derived from them are
// invalidated along with the cost price reads.
func (s *Service) UpsertCostPrices(ctx context.Context, p *account.Principal, inputs []CostPriceInput) ([]CostPriceInfo, error) {
	if len(inputs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No cost prices given")
	}
	if len(inputs) > MaxImportRows {
		return nil, ErrImportTooLarge
	}

	prices := make([]*settlement.CostPrice, 0, len(inputs))
	index := make(map[settlement.CostKey]int, len(inputs))
	storeIDs := make([]uuid.UUID, 0, len(inputs))
	for i, in := range inputs {
		c, err := settlement.NewCostPrice(p.OwnerID, in.StoreID, in.SKU, in.CostPrice)
		if err != nil {
			return nil, rowError(i, err)
		}
		key := settlement.CostKey{StoreID: c.StoreID, SKU: c.SKU}
		if at, ok := index[key]; ok {
			prices[at] = c
			continue
		}
		index[key] = len(prices)
		prices = append(prices, c)
		storeIDs = append(storeIDs, c.StoreID)
	}

	if err := s.checkStores(ctx, p, storeIDs); err != nil {
		return nil, err
	}
	if err := s.costs.Upsert(ctx, prices); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.OwnerID, cache.NamespaceCostPrices, cache.NamespaceSettlements)

	out := make([]CostPriceInfo, len(prices))
	for i, c := range prices {
		out[i] = ToCostPriceInfo(c)
	}
	return out, nil
}

// checkStores requires every id to be a store of the owner that p may see
func (s *Service) checkStores(ctx context.Context, p *account.Principal, ids []uuid.UUID) error {
	ids = shared.UniqueIDs(ids)
	cond := mall.BuildCondition(p, mall.StoreFilter{})
	for _, id := range ids {
		if !cond.Allows(p.OwnerID, id) {
			return ErrStoreNotVisible
		}
	}
	statuses, err := s.stores.Statuses(ctx, p.OwnerID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		status, ok := statuses[id]
		if !ok {
			return ErrStoreNotVisible
		}
		if status != mall.StoreStatusActive {
			return mall.ErrStoreExpired
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, owner uuid.UUID, namespaces ...string) {
	if err := s.cache.Invalidate(ctx, owner, namespaces...); err != nil {
		s.logger.Error("Failed to invalidate query cache",
			zap.String("owner_id", owner.String()),
			zap.Strings("namespaces", namespaces),
			zap.Error(err))
	}
}

func rowError(i int, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return shared.NewDomainError(de.Code, fmt.Sprintf("row %d: %s", i+1, de.Message))
	}
	return fmt.Errorf("row %d: %w", i+1, err)
}
