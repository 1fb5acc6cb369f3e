package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
)

// CreateSubAccountRequest represents the request body for creating a sub-account
type CreateSubAccountRequest struct {
	Username string   `json:"username" binding:"required,username"`
	Password string   `json:"password" binding:"required,min=8,max=128"`
	Nickname string   `json:"nickname" binding:"max=50"`
	StoreIDs []string `json:"store_ids" binding:"omitempty,dive,uuid"`
}

// UpdateSubAccountRequest represents the request body for updating a
// sub-account. Omitted fields are kept.
type UpdateSubAccountRequest struct {
	Nickname *string   `json:"nickname" binding:"omitempty,max=50"`
	Password *string   `json:"password" binding:"omitempty,min=8,max=128"`
	Status   *string   `json:"status" binding:"omitempty,oneof=active disabled"`
	StoreIDs *[]string `json:"store_ids" binding:"omitempty,dive,uuid"`
}

func parseUUIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		ids[i] = uuid.MustParse(s)
	}
	return ids
}

// SubAccountHandler handles sub-account management for main accounts
type SubAccountHandler struct {
	BaseHandler
	service *accountapp.SubAccountService
}

// NewSubAccountHandler creates a new sub-account handler
func NewSubAccountHandler(service *accountapp.SubAccountService) *SubAccountHandler {
	return &SubAccountHandler{service: service}
}

// List godoc
// @Summary      List sub-accounts
// @Tags         sub-accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]accountapp.SubAccountInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sub-accounts [get]
func (h *SubAccountHandler) List(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	subs, err := h.service.List(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, subs)
}

// Create godoc
// @Summary      Create a sub-account
// @Description  Create a sub-account limited to the given stores. Fails with QUOTA_EXCEEDED when the membership sub-account quota is used up.
// @Tags         sub-accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSubAccountRequest true "Sub-account"
// @Success      201 {object} dto.Response{data=accountapp.SubAccountInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sub-accounts [post]
func (h *SubAccountHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateSubAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sub, err := h.service.Create(c.Request.Context(), p, accountapp.CreateSubAccountInput{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
		StoreIDs: parseUUIDs(req.StoreIDs),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sub)
}

// Update godoc
// @Summary      Update a sub-account
// @Description  Change nickname, password, status or store assignments. Password changes and disabling revoke the sub-account's sessions.
// @Tags         sub-accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                  true "Sub-account ID" format(uuid)
// @Param        request body UpdateSubAccountRequest true "Changes"
// @Success      200 {object} dto.Response{data=accountapp.SubAccountInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sub-accounts/{id} [put]
func (h *SubAccountHandler) Update(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateSubAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	input := accountapp.UpdateSubAccountInput{
		Nickname: req.Nickname,
		Password: req.Password,
	}
	if req.Status != nil {
		status := account.Status(*req.Status)
		input.Status = &status
	}
	if req.StoreIDs != nil {
		ids := parseUUIDs(*req.StoreIDs)
		input.StoreIDs = &ids
	}

	sub, err := h.service.Update(c.Request.Context(), p, id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Delete godoc
// @Summary      Delete a sub-account
// @Tags         sub-accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Sub-account ID" format(uuid)
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sub-accounts/{id} [delete]
func (h *SubAccountHandler) Delete(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}
