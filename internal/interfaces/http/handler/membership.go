package handler

import (
	"github.com/gin-gonic/gin"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
)

// MembershipHandler serves membership details and the plugin catalog to customers
type MembershipHandler struct {
	BaseHandler
	membership *accountapp.MembershipService
	plugins    *adminapp.PluginService
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(membership *accountapp.MembershipService, plugins *adminapp.PluginService) *MembershipHandler {
	return &MembershipHandler{membership: membership, plugins: plugins}
}

// Info godoc
// @Summary      Current membership
// @Description  Level, expiry, quota and usage of the caller's main account
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=accountapp.MembershipInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /membership [get]
func (h *MembershipHandler) Info(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	info, err := h.membership.Info(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// Levels godoc
// @Summary      Membership levels
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]accountapp.LevelInfo}
// @Router       /membership/levels [get]
func (h *MembershipHandler) Levels(c *gin.Context) {
	levels, err := h.membership.Levels(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, levels)
}

// Plugins godoc
// @Summary      Published plugins
// @Description  Browser plugin releases available for download
// @Tags         plugins
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=[]adminapp.PluginInfo}
// @Router       /plugins [get]
func (h *MembershipHandler) Plugins(c *gin.Context) {
	plugins, err := h.plugins.ListPublished(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plugins)
}
