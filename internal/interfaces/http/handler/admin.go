package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
)

// =====================
// Admin Request DTOs
// =====================

// UserListQuery represents the query of the console user list
type UserListQuery struct {
	PageQuery
	Keyword string `form:"keyword" binding:"max=100"`
	Status  string `form:"status" binding:"omitempty,oneof=active disabled"`
}

// SetUserStatusRequest represents the request body for enabling or disabling a user
type SetUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}

// ResetPasswordRequest represents the request body for a password reset
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// SetMembershipRequest represents the request body for granting a membership.
// Exactly one of expires_at and extend_days must be given.
type SetMembershipRequest struct {
	LevelID    string     `json:"level_id" binding:"required,uuid"`
	ExpiresAt  *time.Time `json:"expires_at"`
	ExtendDays int        `json:"extend_days" binding:"gte=0,lte=3650"`
}

// CreateAdminRequest represents the request body for creating a console operator
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=super operator"`
}

// AdminHandler handles console user and operator management
type AdminHandler struct {
	BaseHandler
	users  *adminapp.UserService
	admins *adminapp.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *adminapp.UserService, admins *adminapp.AdminService) *AdminHandler {
	return &AdminHandler{users: users, admins: admins}
}

// ListUsers godoc
// @Summary      List users
// @Tags         admin-users
// @Produce      json
// @Security     BearerAuth
// @Param        keyword   query string false "Username, email or phone contains"
// @Param        status    query string false "Account status" Enums(active, disabled)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20) maximum(200)
// @Success      200 {object} dto.Response{data=[]adminapp.UserInfo,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.users.List(c.Request.Context(), account.UserFilter{
		Keyword:    strings.TrimSpace(q.Keyword),
		Status:     account.Status(q.Status),
		Pagination: q.pagination(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetUser godoc
// @Summary      Get a user
// @Description  User with membership, store count and sub-account count
// @Tags         admin-users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} dto.Response{data=adminapp.UserDetail}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// SetUserStatus godoc
// @Summary      Enable or disable a user
// @Description  Disabling revokes the sessions of the user and its sub-accounts
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "User ID" format(uuid)
// @Param        request body SetUserStatusRequest true "Status"
// @Success      200 {object} dto.Response{data=adminapp.UserInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/users/{id}/status [put]
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req SetUserStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetStatus(c.Request.Context(), id, account.Status(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ResetPassword godoc
// @Summary      Reset a user's password
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "User ID" format(uuid)
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} SuccessResponse
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/users/{id}/reset-password [post]
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), id, req.Password); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, nil)
}

// SetMembership godoc
// @Summary      Grant a membership
// @Description  Set the user's level until expires_at, or extend the current expiry by extend_days
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "User ID" format(uuid)
// @Param        request body SetMembershipRequest true "Membership"
// @Success      200 {object} dto.Response{data=adminapp.UserDetail}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/users/{id}/membership [put]
func (h *AdminHandler) SetMembership(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req SetMembershipRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetMembership(c.Request.Context(), id, adminapp.SetMembershipInput{
		LevelID:    uuid.MustParse(req.LevelID),
		ExpiresAt:  req.ExpiresAt,
		ExtendDays: req.ExtendDays,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ListAdmins godoc
// @Summary      List console operators
// @Tags         admin-admins
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]adminapp.AdminInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/admins [get]
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	admins, err := h.admins.List(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, admins)
}

// CreateAdmin godoc
// @Summary      Create a console operator
// @Tags         admin-admins
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateAdminRequest true "Operator"
// @Success      201 {object} dto.Response{data=adminapp.AdminInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/admins [post]
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req CreateAdminRequest
	if !h.bindJSON(c, &req) {
		return
	}
	admin, err := h.admins.Create(c.Request.Context(), p, req.Username, req.Password, account.AdminRole(req.Role))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, admin)
}
