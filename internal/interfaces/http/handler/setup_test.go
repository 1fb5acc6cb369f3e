package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
	mallapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/mall"
	settlementapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/mall"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/membership"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/storage"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/handler"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/middleware"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/router"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassword = "password123"

var testCookie = config.CookieConfig{Name: "zq_token", Path: "/", SameSite: "lax"}

type apiEnv struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	engine *gin.Engine
	levels *persistence.GormLevelRepository
	malls  *persistence.GormMallRepository
	admins *adminapp.AdminService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	middleware.SetupValidator()

	db := testutil.NewSQLiteDB(t)
	log := zap.NewNop()

	queries, err := cache.NewQueryCache(cache.Config{TTL: 30 * time.Second, MaxEntries: 1000, KeyPrefix: "q"})
	require.NoError(t, err)
	t.Cleanup(queries.Close)
	identity, err := cache.NewQueryCache(cache.Config{TTL: time.Minute, MaxEntries: 1000, KeyPrefix: "id"})
	require.NoError(t, err)
	t.Cleanup(identity.Close)

	objects, err := storage.NewLocalObjectStorage(t.TempDir(), "/static/plugins")
	require.NoError(t, err)

	users := persistence.NewGormUserRepository(db)
	subs := persistence.NewGormSubAccountRepository(db)
	admins := persistence.NewGormAdminRepository(db)
	levels := persistence.NewGormLevelRepository(db)
	malls := persistence.NewGormMallRepository(db)
	stores := persistence.NewGormStoreRepository(db)
	plugins := persistence.NewGormPluginRepository(db)
	records := persistence.NewGormSettlementRepository(db)
	costs := persistence.NewGormCostPriceRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-that-is-long-enough",
		RefreshSecret:          "handler-test-refresh-secret-long-enough",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "zique-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	tokenTTL := jwtService.GetRefreshTokenExpiration()

	resolver := accountapp.NewIdentityResolver(users, subs, admins, identity, blacklist, log)
	authService := accountapp.NewAuthService(users, subs, admins, levels, jwtService, blacklist, resolver, nil, log)
	subService := accountapp.NewSubAccountService(subs, users, levels, stores, identity, blacklist, tokenTTL, nil, log)
	membershipService := accountapp.NewMembershipService(users, subs, levels, stores)
	storeService := mallapp.NewStoreService(stores, malls, users, subs, levels, queries, identity, nil, log)
	settlementService := settlementapp.NewService(records, costs, stores, queries, nil, log)
	pluginService := adminapp.NewPluginService(plugins, objects, 1<<20, log)
	adminService := adminapp.NewAdminService(admins, log)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	groups := router.APIGroups(router.Handlers{
		Auth:       handler.NewAuthHandler(authService, testCookie),
		Store:      handler.NewStoreHandler(storeService, mallapp.NewMallService(malls)),
		Settlement: handler.NewSettlementHandler(settlementService),
		SubAccount: handler.NewSubAccountHandler(subService),
		Membership: handler.NewMembershipHandler(membershipService, pluginService),
		Admin: handler.NewAdminHandler(
			adminapp.NewUserService(users, subs, stores, levels, blacklist, queries, identity, tokenTTL, log),
			adminService,
		),
		Catalog: handler.NewCatalogHandler(
			adminapp.NewLevelService(levels, log),
			adminapp.NewMallService(malls, log),
			pluginService,
		),
	}, router.Guards{
		Authenticate: middleware.Authenticate(middleware.AuthConfig{
			JWTService: jwtService,
			Resolver:   resolver,
			CookieName: testCookie.Name,
			Logger:     log,
		}),
	})
	for _, g := range groups {
		r.Register(g)
	}
	r.Setup()

	return &apiEnv{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		engine: engine,
		levels: levels,
		malls:  malls,
		admins: adminService,
	}
}

func (e *apiEnv) do(req testutil.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	return testutil.Perform(e.t, e.engine, req)
}

// level creates an enabled membership level
func (e *apiEnv) level(code string, stores, subs int, isDefault bool) *membership.Level {
	e.t.Helper()
	l, err := membership.NewLevel(membership.LevelInput{
		Code:            code,
		Name:            code,
		StoreQuota:      stores,
		SubAccountQuota: subs,
		Price:           decimal.NewFromInt(99),
		DurationDays:    30,
		IsDefault:       isDefault,
		Enabled:         true,
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.levels.Create(e.ctx, l))
	return l
}

func (e *apiEnv) mall(code string) *mall.Mall {
	e.t.Helper()
	m, err := mall.NewMall(code, "Mall "+code, "shopee", "MY", "MYR")
	require.NoError(e.t, err)
	require.NoError(e.t, e.malls.Create(e.ctx, m))
	return m
}

// registerAndLogin creates a main account through the API and returns its access token
func (e *apiEnv) registerAndLogin(username string) string {
	e.t.Helper()
	w := e.do(testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/register",
		Body:   map[string]string{"username": username, "password": testPassword},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return e.login("main", username)
}

func (e *apiEnv) login(accountType, username string) string {
	e.t.Helper()
	path := "/api/v1/auth/login"
	body := map[string]string{"account_type": accountType, "username": username, "password": testPassword}
	if accountType == "admin" {
		path = "/api/v1/admin/auth/login"
		body = map[string]string{"username": username, "password": testPassword}
	}
	w := e.do(testutil.Request{Method: http.MethodPost, Path: path, Body: body})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())

	var out handler.LoginResponse
	testutil.Decode(e.t, w, &out)
	require.NotEmpty(e.t, out.Token.AccessToken)
	return out.Token.AccessToken
}

func (e *apiEnv) superAdmin() string {
	e.t.Helper()
	created, err := e.admins.Bootstrap(e.ctx, "root", testPassword)
	require.NoError(e.t, err)
	require.True(e.t, created)
	return e.login("admin", "root")
}

// bindStore binds a store through the API and returns its ID
func (e *apiEnv) bindStore(token string, m *mall.Mall, ext string) string {
	e.t.Helper()
	w := e.do(testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/stores",
		Token:  token,
		Body:   map[string]string{"mall_id": m.ID.String(), "name": "Store " + ext, "external_id": ext},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var out mallapp.StoreInfo
	testutil.Decode(e.t, w, &out)
	return out.ID.String()
}
