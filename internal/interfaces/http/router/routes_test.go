package router

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/handler"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// principalFromHeader stands in for token authentication
func principalFromHeader(c *gin.Context) {
	var p *account.Principal
	id := uuid.New()
	switch c.GetHeader("X-Test-Account") {
	case "main":
		p = &account.Principal{AccountType: account.TypeMain, AccountID: id, OwnerID: id}
	case "sub":
		p = &account.Principal{AccountType: account.TypeSub, AccountID: id, OwnerID: uuid.New(), Restricted: true}
	case "operator":
		p = &account.Principal{AccountType: account.TypeAdmin, AccountID: id, AdminRole: account.AdminRoleOperator}
	default:
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set(middleware.PrincipalKey, p)
	c.Next()
}

// The handlers are never reached by the requests below, so zero values suffice
func testHandlers() Handlers {
	return Handlers{
		Auth:       &handler.AuthHandler{},
		Store:      &handler.StoreHandler{},
		Settlement: &handler.SettlementHandler{},
		SubAccount: &handler.SubAccountHandler{},
		Membership: &handler.MembershipHandler{},
		Admin:      &handler.AdminHandler{},
		Catalog:    &handler.CatalogHandler{},
	}
}

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	engine := gin.New()
	r := NewRouter(engine)
	for _, g := range APIGroups(testHandlers(), Guards{Authenticate: principalFromHeader}) {
		r.Register(g)
	}
	r.Setup()
	return engine
}

func TestAPIGroupsRouteTable(t *testing.T) {
	var routes []string
	for _, g := range APIGroups(testHandlers(), Guards{}) {
		for _, ri := range g.Routes("/api/v1") {
			routes = append(routes, ri.Method+" "+ri.Path)
		}
	}

	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"GET /api/v1/malls",
		"GET /api/v1/stores",
		"POST /api/v1/stores",
		"PUT /api/v1/stores/:id",
		"DELETE /api/v1/stores/:id",
		"GET /api/v1/settlements",
		"GET /api/v1/settlements/summary",
		"GET /api/v1/settlements/statement",
		"POST /api/v1/settlements/import",
		"GET /api/v1/cost-prices",
		"PUT /api/v1/cost-prices",
		"GET /api/v1/sub-accounts",
		"POST /api/v1/sub-accounts",
		"PUT /api/v1/sub-accounts/:id",
		"DELETE /api/v1/sub-accounts/:id",
		"GET /api/v1/membership",
		"GET /api/v1/membership/levels",
		"GET /api/v1/plugins",
		"POST /api/v1/admin/auth/login",
		"GET /api/v1/admin/users",
		"GET /api/v1/admin/users/:id",
		"PUT /api/v1/admin/users/:id/status",
		"POST /api/v1/admin/users/:id/reset-password",
		"PUT /api/v1/admin/users/:id/membership",
		"GET /api/v1/admin/membership-levels",
		"POST /api/v1/admin/membership-levels",
		"PUT /api/v1/admin/membership-levels/:id",
		"DELETE /api/v1/admin/membership-levels/:id",
		"GET /api/v1/admin/malls",
		"POST /api/v1/admin/malls",
		"PUT /api/v1/admin/malls/:id",
		"GET /api/v1/admin/plugins",
		"POST /api/v1/admin/plugins",
		"PUT /api/v1/admin/plugins/:id",
		"DELETE /api/v1/admin/plugins/:id",
		"POST /api/v1/admin/plugins/:id/publish",
		"POST /api/v1/admin/plugins/:id/offline",
		"POST /api/v1/admin/plugins/:id/package",
		"GET /api/v1/admin/admins",
		"POST /api/v1/admin/admins",
	} {
		assert.Contains(t, routes, want)
	}
}

func TestAPIGroupsSetupDoesNotConflict(t *testing.T) {
	require.NotPanics(t, func() { testEngine(t) })
}

func TestAPIGroupsGuards(t *testing.T) {
	engine := testEngine(t)

	tests := []struct {
		name    string
		method  string
		path    string
		account string
		status  int
	}{
		{"stores need a token", http.MethodGet, "/api/v1/stores", "", http.StatusUnauthorized},
		{"me needs a token", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"sub cannot bind", http.MethodPost, "/api/v1/stores", "sub", http.StatusForbidden},
		{"sub cannot unbind", http.MethodDelete, "/api/v1/stores/" + uuid.NewString(), "sub", http.StatusForbidden},
		{"sub cannot manage sub-accounts", http.MethodGet, "/api/v1/sub-accounts", "sub", http.StatusForbidden},
		{"admin has no settlements", http.MethodGet, "/api/v1/settlements", "operator", http.StatusForbidden},
		{"admin has no membership", http.MethodGet, "/api/v1/membership", "operator", http.StatusForbidden},
		{"customer cannot use console", http.MethodGet, "/api/v1/admin/users", "main", http.StatusForbidden},
		{"console needs a token", http.MethodGet, "/api/v1/admin/users", "", http.StatusUnauthorized},
		{"operator cannot manage admins", http.MethodGet, "/api/v1/admin/admins", "operator", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.method, tt.path)
			if tt.account != "" {
				req.Header.Set("X-Test-Account", tt.account)
			}
			w := record(engine, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
