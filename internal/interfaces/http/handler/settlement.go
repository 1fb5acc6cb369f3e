package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	settlementapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// SettlementQuery represents the filters of settlement reads
type SettlementQuery struct {
	StoreScopeQuery
	Status    string `form:"status" binding:"omitempty,oneof=pending arrived"`
	SKU       string `form:"sku" binding:"max=100"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

func (q SettlementQuery) settlementFilter() (settlement.Filter, error) {
	f := settlement.Filter{
		Status: settlement.Status(q.Status),
		SKU:    q.SKU,
	}
	var err error
	if f.StartDate, err = parseDay("start_date", q.StartDate); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDay("end_date", q.EndDate); err != nil {
		return f, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, shared.NewDomainError("INVALID_DATE_RANGE", "end_date must not be before start_date")
	}
	return f, nil
}

// parseDay reads an optional YYYY-MM-DD query value
func parseDay(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_DATE", fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", field))
	}
	return &t, nil
}

// SettlementListQuery represents the query of the settlement list
type SettlementListQuery struct {
	SettlementQuery
	PageQuery
}

// ImportSettlementsRequest represents a batch of records pushed by the plugin
type ImportSettlementsRequest struct {
	Rows []SettlementRow `json:"rows" binding:"required,min=1,max=1000,dive"`
}

// SettlementRow represents one imported settlement record
type SettlementRow struct {
	StoreID     string          `json:"store_id" binding:"required,uuid"`
	OrderNo     string          `json:"order_no" binding:"required,max=64"`
	SKU         string          `json:"sku" binding:"required,sku"`
	ProductName string          `json:"product_name" binding:"max=255"`
	Volume      int64           `json:"volume" binding:"gte=0"`
	AvgPrice    decimal.Decimal `json:"avg_price" swaggertype:"string" example:"19.90"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Status      string          `json:"status" binding:"required,oneof=pending arrived"`
	OrderedAt   time.Time       `json:"ordered_at" binding:"required"`
	SettledAt   *time.Time      `json:"settled_at"`
}

// CostPriceListQuery represents the query of the cost price list
type CostPriceListQuery struct {
	StoreScopeQuery
	PageQuery
	SKU string `form:"sku" binding:"max=100"`
}

// UpsertCostPricesRequest represents a batch of unit costs
type UpsertCostPricesRequest struct {
	Items []CostPriceItem `json:"items" binding:"required,min=1,max=1000,dive"`
}

// CostPriceItem represents the unit cost of one SKU in one store
type CostPriceItem struct {
	StoreID   string          `json:"store_id" binding:"required,uuid"`
	SKU       string          `json:"sku" binding:"required,sku"`
	CostPrice decimal.Decimal `json:"cost_price" swaggertype:"string" example:"8.50"`
}

// SettlementHandler handles settlement and cost price requests
type SettlementHandler struct {
	BaseHandler
	service *settlementapp.Service
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(service *settlementapp.Service) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// List godoc
// @Summary      List settlements
// @Description  List settlement lines of the visible stores with cost, gross profit and profit rate
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        store_ids  query  string  false  "Comma separated store IDs"
// @Param        store_name query  string  false  "Store name contains"
// @Param        status     query  string  false  "Settlement status" Enums(pending, arrived)
// @Param        sku        query  string  false  "Exact SKU"
// @Param        start_date query  string  false  "Ordered on or after (YYYY-MM-DD)"
// @Param        end_date   query  string  false  "Ordered on or before (YYYY-MM-DD)"
// @Param        page       query  int     false  "Page number" default(1)
// @Param        page_size  query  int     false  "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]settlementapp.LineInfo,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settlements [get]
func (h *SettlementHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q SettlementListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	scope, err := q.filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	f, err := q.settlementFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), p, scope, f, q.pagination())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Summary godoc
// @Summary      Settlement summary
// @Description  Pending and arrived revenue, cost, gross profit and profit rate over the visible stores
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        store_ids  query  string  false  "Comma separated store IDs"
// @Param        store_name query  string  false  "Store name contains"
// @Param        status     query  string  false  "Settlement status" Enums(pending, arrived)
// @Param        sku        query  string  false  "Exact SKU"
// @Param        start_date query  string  false  "Ordered on or after (YYYY-MM-DD)"
// @Param        end_date   query  string  false  "Ordered on or before (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=settlement.Summary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settlements/summary [get]
func (h *SettlementHandler) Summary(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q SettlementQuery
	if !h.bindQuery(c, &q) {
		return
	}
	scope, err := q.filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	f, err := q.settlementFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), p, scope, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Statement godoc
// @Summary      Settlement statement
// @Description  Print the settlement lines and summary of the visible stores as a PDF, up to 2000 lines
// @Tags         settlements
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        store_ids  query  string  false  "Comma separated store IDs"
// @Param        store_name query  string  false  "Store name contains"
// @Param        status     query  string  false  "Settlement status" Enums(pending, arrived)
// @Param        sku        query  string  false  "Exact SKU"
// @Param        start_date query  string  false  "Ordered on or after (YYYY-MM-DD)"
// @Param        end_date   query  string  false  "Ordered on or before (YYYY-MM-DD)"
// @Success      200 {file}   binary
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settlements/statement [get]
func (h *SettlementHandler) Statement(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q SettlementQuery
	if !h.bindQuery(c, &q) {
		return
	}
	scope, err := q.filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	f, err := q.settlementFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	pdf, err := h.service.ExportStatement(c.Request.Context(), p, scope, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	filename := fmt.Sprintf("settlement-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Import godoc
// @Summary      Import settlements
// @Description  Upsert up to 1000 records keyed by store, order number and SKU. The batch is rejected as a whole when any row is invalid or targets a store the caller cannot see.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ImportSettlementsRequest true "Records"
// @Success      200 {object} dto.Response{data=settlementapp.ImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /settlements/import [post]
func (h *SettlementHandler) Import(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req ImportSettlementsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rows := make([]settlement.RecordInput, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = settlement.RecordInput{
			StoreID:     uuid.MustParse(r.StoreID),
			OrderNo:     r.OrderNo,
			SKU:         r.SKU,
			ProductName: r.ProductName,
			Volume:      r.Volume,
			AvgPrice:    r.AvgPrice,
			Currency:    r.Currency,
			Status:      settlement.Status(r.Status),
			OrderedAt:   r.OrderedAt,
			SettledAt:   r.SettledAt,
		}
	}

	result, err := h.service.Import(c.Request.Context(), p, rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListCostPrices godoc
// @Summary      List cost prices
// @Tags         cost-prices
// @Produce      json
// @Security     BearerAuth
// @Param        store_ids  query  string  false  "Comma separated store IDs"
// @Param        sku        query  string  false  "Exact SKU"
// @Param        page       query  int     false  "Page number" default(1)
// @Param        page_size  query  int     false  "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]settlementapp.CostPriceInfo,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cost-prices [get]
func (h *SettlementHandler) ListCostPrices(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q CostPriceListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	scope, err := q.filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.ListCostPrices(c.Request.Context(), p, scope,
		settlement.CostFilter{SKU: q.SKU}, q.pagination())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// UpsertCostPrices godoc
// @Summary      Set cost prices
// @Description  Create or replace the unit cost of SKUs in visible stores
// @Tags         cost-prices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpsertCostPricesRequest true "Cost prices"
// @Success      200 {object} dto.Response{data=[]settlementapp.CostPriceInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cost-prices [put]
func (h *SettlementHandler) UpsertCostPrices(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req UpsertCostPricesRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inputs := make([]settlementapp.CostPriceInput, len(req.Items))
	for i, item := range req.Items {
		inputs[i] = settlementapp.CostPriceInput{
			StoreID:   uuid.MustParse(item.StoreID),
			SKU:       item.SKU,
			CostPrice: item.CostPrice,
		}
	}

	prices, err := h.service.UpsertCostPrices(c.Request.Context(), p, inputs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, prices)
}
