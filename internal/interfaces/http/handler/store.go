package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	mallapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/mall"
)

// StoreListQuery represents the query of the store list
type StoreListQuery struct {
	StoreScopeQuery
	PageQuery
}

// BindStoreRequest represents the request body for binding a store
type BindStoreRequest struct {
	MallID     string `json:"mall_id" binding:"required,uuid"`
	Name       string `json:"name" binding:"required,min=1,max=100"`
	ExternalID string `json:"external_id" binding:"required,min=1,max=100"`
}

// RenameStoreRequest represents the request body for renaming a store
type RenameStoreRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// StoreHandler handles mall catalog and store binding requests
type StoreHandler struct {
	BaseHandler
	stores *mallapp.StoreService
	malls  *mallapp.MallService
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(stores *mallapp.StoreService, malls *mallapp.MallService) *StoreHandler {
	return &StoreHandler{stores: stores, malls: malls}
}

// ListMalls godoc
// @Summary      List malls
// @Description  List the enabled malls a store can be bound to
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]mallapp.MallInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /malls [get]
func (h *StoreHandler) ListMalls(c *gin.Context) {
	malls, err := h.malls.ListEnabled(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, malls)
}

// List godoc
// @Summary      List stores
// @Description  List the stores visible to the caller. Sub-accounts only see their assigned stores.
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Param        store_ids  query  string  false  "Comma separated store IDs"
// @Param        store_name query  string  false  "Store name contains"
// @Param        mall_id    query  string  false  "Mall ID" format(uuid)
// @Param        page       query  int     false  "Page number" default(1)
// @Param        page_size  query  int     false  "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]mallapp.StoreInfo,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stores [get]
func (h *StoreHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var q StoreListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filter, err := q.filter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.stores.List(c.Request.Context(), p, filter, q.pagination())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Bind godoc
// @Summary      Bind a store
// @Description  Bind a store of an enabled mall. Fails with QUOTA_EXCEEDED when the membership store quota is used up.
// @Tags         stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BindStoreRequest true "Store"
// @Success      201 {object} dto.Response{data=mallapp.StoreInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stores [post]
func (h *StoreHandler) Bind(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req BindStoreRequest
	if !h.bindJSON(c, &req) {
		return
	}

	store, err := h.stores.Bind(c.Request.Context(), p, mallapp.BindStoreInput{
		MallID:     uuid.MustParse(req.MallID),
		Name:       req.Name,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, store)
}

// Rename godoc
// @Summary      Rename a store
// @Tags         stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string             true "Store ID" format(uuid)
// @Param        request body RenameStoreRequest true "New name"
// @Success      200 {object} dto.Response{data=mallapp.StoreInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stores/{id} [put]
func (h *StoreHandler) Rename(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req RenameStoreRequest
	if !h.bindJSON(c, &req) {
		return
	}

	store, err := h.stores.Rename(c.Request.Context(), p, id, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, store)
}

// Unbind godoc
// @Summary      Unbind a store
// @Description  Remove the store, its settlement data and its sub-account assignments
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Store ID" format(uuid)
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stores/{id} [delete]
func (h *StoreHandler) Unbind(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.stores.Unbind(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}
