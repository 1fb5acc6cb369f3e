package settlement

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostPrice is the recorded unit cost of a SKU in a store
type CostPrice struct {
	shared.BaseEntity
	UserID    uuid.UUID
	StoreID   uuid.UUID
	SKU       string
	CostPrice decimal.Decimal
}

// NewCostPrice validates and builds a cost price entry
func NewCostPrice(userID, storeID uuid.UUID, sku string, cost decimal.Decimal) (*CostPrice, error) {
	sku = strings.TrimSpace(sku)
	if storeID == uuid.Nil || sku == "" {
		return nil, shared.NewDomainError("INVALID_COST_PRICE", "Store and SKU are required")
	}
	if cost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST_PRICE", "Cost price cannot be negative")
	}
	return &CostPrice{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		StoreID:    storeID,
		SKU:        sku,
		CostPrice:  cost,
	}, nil
}

// CostKey identifies a cost price
type CostKey struct {
	StoreID uuid.UUID
	SKU     string
}

// Line is a record with its profit figures resolved
type Line struct {
	Record      *Record
	CostPrice   decimal.Decimal
	CostMissing bool
	Revenue     decimal.Decimal
	Cost        decimal.Decimal
	GrossProfit decimal.Decimal
	ProfitRate  decimal.Decimal
}

// NewLine computes the profit of r. A nil cost counts as zero and is flagged.
func NewLine(r *Record, cost *decimal.Decimal) Line {
	l := Line{Record: r, CostMissing: cost == nil}
	if cost != nil {
		l.CostPrice = *cost
	}
	l.Revenue = r.Revenue()
	l.Cost = Cost(l.CostPrice, r.Volume)
	l.GrossProfit = GrossProfit(r.AvgPrice, l.CostPrice, r.Volume)
	l.ProfitRate = ProfitRate(l.GrossProfit, l.Revenue)
	return l
}

// Rounded returns l with its money figures rounded for output. The profit
// rate keeps its own precision because it is derived from unrounded figures.
func (l Line) Rounded() Line {
	l.Revenue = l.Revenue.Round(moneyPlaces)
	l.Cost = l.Cost.Round(moneyPlaces)
	l.GrossProfit = l.GrossProfit.Round(moneyPlaces)
	return l
}

// BuildLines resolves every record against costs
func BuildLines(records []*Record, costs map[CostKey]decimal.Decimal) []Line {
	lines := make([]Line, 0, len(records))
	for _, r := range records {
		var cost *decimal.Decimal
		if c, ok := costs[CostKey{StoreID: r.StoreID, SKU: r.SKU}]; ok {
			cost = &c
		}
		lines = append(lines, NewLine(r, cost))
	}
	return lines
}

// Summary aggregates lines by payout status. Amounts are never converted:
// the top-level figures add up every currency in scope and only read as
// money when Currency is set. ByCurrency always holds the per-currency split.
type Summary struct {
	PendingRevenue   decimal.Decimal   `json:"pending_revenue"`
	ArrivedRevenue   decimal.Decimal   `json:"arrived_revenue"`
	TotalRevenue     decimal.Decimal   `json:"total_revenue"`
	TotalCost        decimal.Decimal   `json:"total_cost"`
	GrossProfit      decimal.Decimal   `json:"gross_profit"`
	ProfitRate       decimal.Decimal   `json:"profit_rate"`
	PendingCount     int64             `json:"pending_count"`
	ArrivedCount     int64             `json:"arrived_count"`
	MissingCostCount int64             `json:"missing_cost_count"`
	Currency         string            `json:"currency,omitempty"`
	ByCurrency       []CurrencySummary `json:"by_currency"`

	idx map[string]int
}

// CurrencySummary is the part of a summary settled in one currency
type CurrencySummary struct {
	Currency       string          `json:"currency"`
	PendingRevenue decimal.Decimal `json:"pending_revenue"`
	ArrivedRevenue decimal.Decimal `json:"arrived_revenue"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	ProfitRate     decimal.Decimal `json:"profit_rate"`
}

// Add folds one line into the summary
func (s *Summary) Add(l Line) {
	var missing int64
	if l.CostMissing {
		missing = 1
	}
	s.add(l.Record.Currency, l.Record.Status, l.Revenue, l.Cost, 1, missing)
}

func (s *Summary) add(currency string, status Status, revenue, cost decimal.Decimal, count, missing int64) {
	c := s.currency(currency)
	switch status {
	case StatusArrived:
		s.ArrivedRevenue = s.ArrivedRevenue.Add(revenue)
		s.ArrivedCount += count
		c.ArrivedRevenue = c.ArrivedRevenue.Add(revenue)
	default:
		s.PendingRevenue = s.PendingRevenue.Add(revenue)
		s.PendingCount += count
		c.PendingRevenue = c.PendingRevenue.Add(revenue)
	}
	s.MissingCostCount += missing
	s.TotalCost = s.TotalCost.Add(cost)
	c.TotalCost = c.TotalCost.Add(cost)
}

func (s *Summary) currency(code string) *CurrencySummary {
	if s.idx == nil {
		s.idx = make(map[string]int)
	}
	i, ok := s.idx[code]
	if !ok {
		i = len(s.ByCurrency)
		s.idx[code] = i
		s.ByCurrency = append(s.ByCurrency, CurrencySummary{Currency: code})
	}
	return &s.ByCurrency[i]
}

// Finish derives the totals and rounds the output figures
func (s *Summary) Finish() {
	s.TotalRevenue = s.PendingRevenue.Add(s.ArrivedRevenue)
	s.GrossProfit = s.TotalRevenue.Sub(s.TotalCost)
	s.ProfitRate = ProfitRate(s.GrossProfit, s.TotalRevenue)
	s.PendingRevenue = s.PendingRevenue.Round(moneyPlaces)
	s.ArrivedRevenue = s.ArrivedRevenue.Round(moneyPlaces)
	s.TotalRevenue = s.TotalRevenue.Round(moneyPlaces)
	s.TotalCost = s.TotalCost.Round(moneyPlaces)
	s.GrossProfit = s.GrossProfit.Round(moneyPlaces)

	for i := range s.ByCurrency {
		c := &s.ByCurrency[i]
		c.TotalRevenue = c.PendingRevenue.Add(c.ArrivedRevenue)
		c.GrossProfit = c.TotalRevenue.Sub(c.TotalCost)
		c.ProfitRate = ProfitRate(c.GrossProfit, c.TotalRevenue)
		c.PendingRevenue = c.PendingRevenue.Round(moneyPlaces)
		c.ArrivedRevenue = c.ArrivedRevenue.Round(moneyPlaces)
		c.TotalRevenue = c.TotalRevenue.Round(moneyPlaces)
		c.TotalCost = c.TotalCost.Round(moneyPlaces)
		c.GrossProfit = c.GrossProfit.Round(moneyPlaces)
	}
	sort.Slice(s.ByCurrency, func(i, j int) bool {
		return s.ByCurrency[i].Currency < s.ByCurrency[j].Currency
	})
	if s.ByCurrency == nil {
		s.ByCurrency = []CurrencySummary{}
	}
	if len(s.ByCurrency) == 1 {
		s.Currency = s.ByCurrency[0].Currency
	}
	s.idx = nil
}

// Summarize aggregates lines. Pending and arrived revenue are kept apart;
// gross profit covers both.
func Summarize(lines []Line) Summary {
	var s Summary
	for _, l := range lines {
		s.Add(l)
	}
	s.Finish()
	return s
}
