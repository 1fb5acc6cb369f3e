package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/plugin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LevelRequest represents the request body for creating or updating a membership level
type LevelRequest struct {
	Code            string          `json:"code" binding:"required,max=50"`
	Name            string          `json:"name" binding:"required,max=100"`
	StoreQuota      int             `json:"store_quota" binding:"gte=0"`
	SubAccountQuota int             `json:"sub_account_quota" binding:"gte=0"`
	Price           decimal.Decimal `json:"price" swaggertype:"string" example:"99.00"`
	DurationDays    int             `json:"duration_days" binding:"gte=0"`
	IsDefault       bool            `json:"is_default"`
	Enabled         bool            `json:"enabled"`
	Sort            int             `json:"sort"`
}

func (r LevelRequest) input() membership.LevelInput {
	return membership.LevelInput{
		Code:            r.Code,
		Name:            r.Name,
		StoreQuota:      r.StoreQuota,
		SubAccountQuota: r.SubAccountQuota,
		Price:           r.Price,
		DurationDays:    r.DurationDays,
		IsDefault:       r.IsDefault,
		Enabled:         r.Enabled,
		Sort:            r.Sort,
	}
}

// MallRequest represents the request body for creating or updating a mall
type MallRequest struct {
	Code     string `json:"code" binding:"required,max=50"`
	Name     string `json:"name" binding:"required,max=100"`
	Platform string `json:"platform" binding:"max=50"`
	Region   string `json:"region" binding:"max=50"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
	Sort     int    `json:"sort"`
	Enabled  *bool  `json:"enabled"`
}

func (r MallRequest) input() adminapp.MallInput {
	return adminapp.MallInput{
		Code:     r.Code,
		Name:     r.Name,
		Platform: r.Platform,
		Region:   r.Region,
		Currency: r.Currency,
		Sort:     r.Sort,
		Enabled:  r.Enabled,
	}
}

// PluginListQuery represents the query of the console plugin list
type PluginListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=draft published offline"`
}

// CreatePluginRequest represents the request body for creating a plugin
type CreatePluginRequest struct {
	Code string `json:"code" binding:"required,max=50"`
	UpdatePluginRequest
}

// UpdatePluginRequest represents the editable fields of a plugin
type UpdatePluginRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Version     string `json:"version" binding:"required,max=30"`
	Changelog   string `json:"changelog" binding:"max=5000"`
	Sort        int    `json:"sort"`
}

func (r UpdatePluginRequest) info() plugin.Info {
	return plugin.Info{
		Name:        r.Name,
		Description: r.Description,
		Version:     r.Version,
		Changelog:   r.Changelog,
		Sort:        r.Sort,
	}
}

// CatalogHandler handles console management of levels, malls and plugins
type CatalogHandler struct {
	BaseHandler
	levels  *adminapp.LevelService
	malls   *adminapp.MallService
	plugins *adminapp.PluginService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(levels *adminapp.LevelService, malls *adminapp.MallService, plugins *adminapp.PluginService) *CatalogHandler {
	return &CatalogHandler{levels: levels, malls: malls, plugins: plugins}
}

// ListLevels godoc
// @Summary      List membership levels
// @Tags         admin-levels
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]accountapp.LevelInfo}
// @Router       /admin/membership-levels [get]
func (h *CatalogHandler) ListLevels(c *gin.Context) {
	levels, err := h.levels.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, levels)
}

// CreateLevel godoc
// @Summary      Create a membership level
// @Tags         admin-levels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body LevelRequest true "Level"
// @Success      201 {object} dto.Response{data=accountapp.LevelInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/membership-levels [post]
func (h *CatalogHandler) CreateLevel(c *gin.Context) {
	var req LevelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Create(c.Request.Context(), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, level)
}

// UpdateLevel godoc
// @Summary      Update a membership level
// @Tags         admin-levels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string       true "Level ID" format(uuid)
// @Param        request body LevelRequest true "Level"
// @Success      200 {object} dto.Response{data=accountapp.LevelInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/membership-levels/{id} [put]
func (h *CatalogHandler) UpdateLevel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req LevelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	level, err := h.levels.Update(c.Request.Context(), id, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// DeleteLevel godoc
// @Summary      Delete a membership level
// @Description  The default level and levels held by users cannot be deleted
// @Tags         admin-levels
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Level ID" format(uuid)
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/membership-levels/{id} [delete]
func (h *CatalogHandler) DeleteLevel(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.levels.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}

// ListMalls godoc
// @Summary      List malls
// @Description  All malls, enabled or not
// @Tags         admin-malls
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]mallapp.MallInfo}
// @Router       /admin/malls [get]
func (h *CatalogHandler) ListMalls(c *gin.Context) {
	malls, err := h.malls.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, malls)
}

// CreateMall godoc
// @Summary      Create a mall
// @Tags         admin-malls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body MallRequest true "Mall"
// @Success      201 {object} dto.Response{data=mallapp.MallInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/malls [post]
func (h *CatalogHandler) CreateMall(c *gin.Context) {
	var req MallRequest
	if !h.bindJSON(c, &req) {
		return
	}
	m, err := h.malls.Create(c.Request.Context(), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, m)
}

// UpdateMall godoc
// @Summary      Update a mall
// @Description  Edit a mall or enable and disable it
// @Tags         admin-malls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string      true "Mall ID" format(uuid)
// @Param        request body MallRequest true "Mall"
// @Success      200 {object} dto.Response{data=mallapp.MallInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/malls/{id} [put]
func (h *CatalogHandler) UpdateMall(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req MallRequest
	if !h.bindJSON(c, &req) {
		return
	}
	m, err := h.malls.Update(c.Request.Context(), id, req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// ListPlugins godoc
// @Summary      List plugins
// @Tags         admin-plugins
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Plugin status" Enums(draft, published, offline)
// @Success      200 {object} dto.Response{data=[]adminapp.PluginInfo}
// @Router       /admin/plugins [get]
func (h *CatalogHandler) ListPlugins(c *gin.Context) {
	var q PluginListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	plugins, err := h.plugins.List(c.Request.Context(), plugin.Status(q.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plugins)
}

// CreatePlugin godoc
// @Summary      Create a plugin
// @Description  Create a draft plugin release
// @Tags         admin-plugins
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePluginRequest true "Plugin"
// @Success      201 {object} dto.Response{data=adminapp.PluginInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins [post]
func (h *CatalogHandler) CreatePlugin(c *gin.Context) {
	var req CreatePluginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.plugins.Create(c.Request.Context(), req.Code, req.info())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// UpdatePlugin godoc
// @Summary      Update a plugin
// @Tags         admin-plugins
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string              true "Plugin ID" format(uuid)
// @Param        request body UpdatePluginRequest true "Plugin"
// @Success      200 {object} dto.Response{data=adminapp.PluginInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins/{id} [put]
func (h *CatalogHandler) UpdatePlugin(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdatePluginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.plugins.Update(c.Request.Context(), id, req.info())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// DeletePlugin godoc
// @Summary      Delete a plugin
// @Description  Remove the plugin and its stored package
// @Tags         admin-plugins
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Plugin ID" format(uuid)
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins/{id} [delete]
func (h *CatalogHandler) DeletePlugin(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.plugins.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}

// PublishPlugin godoc
// @Summary      Publish a plugin
// @Description  A plugin needs an uploaded package to be published
// @Tags         admin-plugins
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Plugin ID" format(uuid)
// @Success      200 {object} dto.Response{data=adminapp.PluginInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins/{id}/publish [post]
func (h *CatalogHandler) PublishPlugin(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.plugins.Publish(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// OfflinePlugin godoc
// @Summary      Take a plugin offline
// @Tags         admin-plugins
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Plugin ID" format(uuid)
// @Success      200 {object} dto.Response{data=adminapp.PluginInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins/{id}/offline [post]
func (h *CatalogHandler) OfflinePlugin(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.plugins.TakeOffline(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// UploadPackage godoc
// @Summary      Upload a plugin package
// @Description  Store the zip package of the plugin's current version
// @Tags         admin-plugins
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Plugin ID" format(uuid)
// @Param        file formData file   true "Plugin zip package"
// @Success      200 {object} dto.Response{data=adminapp.PluginInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/plugins/{id}/package [post]
func (h *CatalogHandler) UploadPackage(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.bindError(c, err)
			return
		}
		h.HandleError(c, shared.NewDomainError("INVALID_PACKAGE", "A package file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer f.Close()

	p, err := h.plugins.UploadPackage(c.Request.Context(), id, f, fh.Size)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
