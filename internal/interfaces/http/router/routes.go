package router

import (
	"github.com/gin-gonic/gin"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/handler"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/middleware"
)

// Handlers bundles the handlers mounted under the API prefix
type Handlers struct {
	Auth       *handler.AuthHandler
	Store      *handler.StoreHandler
	Settlement *handler.SettlementHandler
	SubAccount *handler.SubAccountHandler
	Membership *handler.MembershipHandler
	Admin      *handler.AdminHandler
	Catalog    *handler.CatalogHandler
}

// Guards are the middleware the route table composes. LoginLimit may be nil.
type Guards struct {
	Authenticate gin.HandlerFunc
	LoginLimit   gin.HandlerFunc
}

// APIGroups builds the customer and console route table
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	return []*DomainGroup{
		authRoutes(h, g),
		storeRoutes(h, g),
		settlementRoutes(h, g),
		subAccountRoutes(h, g),
		membershipRoutes(h, g),
		adminRoutes(h, g),
	}
}

var (
	customerOnly = middleware.RequireAccountType(account.TypeMain, account.TypeSub)
	mainOnly     = middleware.RequireAccountType(account.TypeMain)
)

func authRoutes(h Handlers, g Guards) *DomainGroup {
	auth := NewDomainGroup("auth", "/auth")
	auth.POST("/register", g.LoginLimit, h.Auth.Register)
	auth.POST("/login", g.LoginLimit, h.Auth.Login)
	auth.POST("/refresh", g.LoginLimit, h.Auth.Refresh)

	session := auth.Group("session", "").Use(g.Authenticate)
	session.POST("/logout", h.Auth.Logout)
	session.GET("/me", h.Auth.Me)
	return auth
}

func storeRoutes(h Handlers, g Guards) *DomainGroup {
	root := NewDomainGroup("stores", "")

	root.Group("malls", "/malls").
		Use(g.Authenticate).
		GET("", h.Store.ListMalls)

	root.Group("stores", "/stores").
		Use(g.Authenticate, customerOnly).
		GET("", h.Store.List).
		POST("", mainOnly, h.Store.Bind).
		PUT("/:id", mainOnly, h.Store.Rename).
		DELETE("/:id", mainOnly, h.Store.Unbind)
	return root
}

func settlementRoutes(h Handlers, g Guards) *DomainGroup {
	root := NewDomainGroup("settlements", "")

	root.Group("settlements", "/settlements").
		Use(g.Authenticate, customerOnly).
		GET("", h.Settlement.List).
		GET("/summary", h.Settlement.Summary).
		GET("/statement", h.Settlement.Statement).
		POST("/import", h.Settlement.Import)

	root.Group("cost-prices", "/cost-prices").
		Use(g.Authenticate, customerOnly).
		GET("", h.Settlement.ListCostPrices).
		PUT("", h.Settlement.UpsertCostPrices)
	return root
}

func subAccountRoutes(h Handlers, g Guards) *DomainGroup {
	return NewDomainGroup("sub-accounts", "/sub-accounts").
		Use(g.Authenticate, mainOnly).
		GET("", h.SubAccount.List).
		POST("", h.SubAccount.Create).
		PUT("/:id", h.SubAccount.Update).
		DELETE("/:id", h.SubAccount.Delete)
}

func membershipRoutes(h Handlers, g Guards) *DomainGroup {
	root := NewDomainGroup("membership", "")

	root.Group("membership", "/membership").
		Use(g.Authenticate).
		GET("", customerOnly, h.Membership.Info).
		GET("/levels", h.Membership.Levels)

	root.Group("plugins", "/plugins").
		Use(g.Authenticate).
		GET("", h.Membership.Plugins)
	return root
}

func adminRoutes(h Handlers, g Guards) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin")
	admin.Group("admin-auth", "/auth").
		POST("/login", g.LoginLimit, h.Auth.AdminLogin)

	console := admin.Group("console", "").
		Use(g.Authenticate, middleware.RequireAdminRole())

	console.Group("users", "/users").
		GET("", h.Admin.ListUsers).
		GET("/:id", h.Admin.GetUser).
		PUT("/:id/status", h.Admin.SetUserStatus).
		POST("/:id/reset-password", h.Admin.ResetPassword).
		PUT("/:id/membership", h.Admin.SetMembership)

	console.Group("membership-levels", "/membership-levels").
		GET("", h.Catalog.ListLevels).
		POST("", h.Catalog.CreateLevel).
		PUT("/:id", h.Catalog.UpdateLevel).
		DELETE("/:id", h.Catalog.DeleteLevel)

	console.Group("malls", "/malls").
		GET("", h.Catalog.ListMalls).
		POST("", h.Catalog.CreateMall).
		PUT("/:id", h.Catalog.UpdateMall)

	console.Group("plugins", "/plugins").
		GET("", h.Catalog.ListPlugins).
		POST("", h.Catalog.CreatePlugin).
		PUT("/:id", h.Catalog.UpdatePlugin).
		DELETE("/:id", h.Catalog.DeletePlugin).
		POST("/:id/publish", h.Catalog.PublishPlugin).
		POST("/:id/offline", h.Catalog.OfflinePlugin).
		POST("/:id/package", h.Catalog.UploadPackage)

	console.Group("admins", "/admins").
		Use(middleware.RequireAdminRole(account.AdminRoleSuper)).
		GET("", h.Admin.ListAdmins).
		POST("", h.Admin.CreateAdmin)
	return admin
}
