package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
	mallapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/mall"
	settlementapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/handler"
	"github.com/laixiangran/zique-assistant-platform-sub001/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.level("free", 1, 1, true)

	t.Run("register rejects a malformed username", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/register",
			Body:   map[string]string{"username": "a b", "password": testPassword},
		})
		testutil.AssertError(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})

	token := env.registerAndLogin("alice")

	t.Run("duplicate username", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/register",
			Body:   map[string]string{"username": "Alice", "password": testPassword},
		})
		testutil.AssertError(t, w, http.StatusConflict, "ERR_ALREADY_EXISTS")
	})

	t.Run("bad credentials", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/login",
			Body:   map[string]string{"username": "alice", "password": "wrong-password"},
		})
		testutil.AssertError(t, w, http.StatusUnauthorized, "ERR_UNAUTHORIZED")
	})

	t.Run("me with bearer token", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/auth/me", Token: token})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var me accountapp.AccountInfo
		testutil.Decode(t, w, &me)
		assert.Equal(t, "alice", me.Username)
		assert.Equal(t, "main", string(me.AccountType))
	})

	t.Run("me with cookie", func(t *testing.T) {
		w := env.do(testutil.Request{
			Path:    "/api/v1/auth/me",
			Cookies: []*http.Cookie{{Name: testCookie.Name, Value: token}},
		})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("non-bearer header does not fall back to the cookie", func(t *testing.T) {
		w := env.do(testutil.Request{
			Path:    "/api/v1/auth/me",
			Headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="},
			Cookies: []*http.Cookie{{Name: testCookie.Name, Value: token}},
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login sets session cookies", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/login",
			Body:   map[string]string{"username": "alice", "password": testPassword},
		})
		require.Equal(t, http.StatusOK, w.Code)
		cookies := cookiesByName(w)
		require.Contains(t, cookies, testCookie.Name)
		require.Contains(t, cookies, testCookie.Name+"_refresh")
		assert.True(t, cookies[testCookie.Name].HttpOnly)

		refreshed := env.do(testutil.Request{
			Method:  http.MethodPost,
			Path:    "/api/v1/auth/refresh",
			Cookies: []*http.Cookie{cookies[testCookie.Name+"_refresh"]},
		})
		require.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())
		var pair handler.TokenResponse
		testutil.Decode(t, refreshed, &pair)
		assert.NotEmpty(t, pair.AccessToken)

		reused := env.do(testutil.Request{
			Method:  http.MethodPost,
			Path:    "/api/v1/auth/refresh",
			Cookies: []*http.Cookie{cookies[testCookie.Name+"_refresh"]},
		})
		assert.Equal(t, http.StatusUnauthorized, reused.Code)
	})

	t.Run("refresh without token", func(t *testing.T) {
		w := env.do(testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/refresh"})
		testutil.AssertError(t, w, http.StatusUnauthorized, "ERR_UNAUTHORIZED")
	})

	t.Run("logout revokes the access token", func(t *testing.T) {
		session := env.login("main", "alice")
		w := env.do(testutil.Request{Method: http.MethodPost, Path: "/api/v1/auth/logout", Token: session})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		cleared := cookiesByName(w)
		require.Contains(t, cleared, testCookie.Name)
		assert.Negative(t, cleared[testCookie.Name].MaxAge)

		w = env.do(testutil.Request{Path: "/api/v1/auth/me", Token: session})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStoreScope(t *testing.T) {
	env := newAPIEnv(t)
	env.level("free", 2, 1, true)
	shopee := env.mall("shopee-my")

	owner := env.registerAndLogin("owner")
	first := env.bindStore(owner, shopee, "s-1")
	second := env.bindStore(owner, shopee, "s-2")

	t.Run("quota exceeded", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/stores",
			Token:  owner,
			Body:   map[string]string{"mall_id": shopee.ID.String(), "name": "Third", "external_id": "s-3"},
		})
		testutil.AssertError(t, w, http.StatusForbidden, "ERR_QUOTA_EXCEEDED")
	})

	t.Run("owner lists every store", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/stores", Token: owner})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var stores []mallapp.StoreInfo
		env := testutil.Decode(t, w, &stores)
		assert.Len(t, stores, 2)
		require.NotNil(t, env.Meta)
		assert.EqualValues(t, 2, env.Meta.Total)
	})

	t.Run("store_ids narrows the list", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/stores?store_ids=" + second, Token: owner})
		require.Equal(t, http.StatusOK, w.Code)
		var stores []mallapp.StoreInfo
		testutil.Decode(t, w, &stores)
		require.Len(t, stores, 1)
		assert.Equal(t, second, stores[0].ID.String())
	})

	t.Run("malformed store id", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/stores?store_ids=nope", Token: owner})
		testutil.AssertError(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})

	w := env.do(testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/sub-accounts",
		Token:  owner,
		Body:   map[string]any{"username": "clerk", "password": testPassword, "store_ids": []string{first}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub accountapp.SubAccountInfo
	testutil.Decode(t, w, &sub)
	assert.Equal(t, first, sub.StoreIDs[0].String())

	t.Run("sub-account quota", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/sub-accounts",
			Token:  owner,
			Body:   map[string]any{"username": "clerk2", "password": testPassword},
		})
		testutil.AssertError(t, w, http.StatusForbidden, "ERR_QUOTA_EXCEEDED")
	})

	clerk := env.login("sub", "clerk")

	t.Run("sub-account sees only assigned stores", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/stores", Token: clerk})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var stores []mallapp.StoreInfo
		testutil.Decode(t, w, &stores)
		require.Len(t, stores, 1)
		assert.Equal(t, first, stores[0].ID.String())

		w = env.do(testutil.Request{Path: "/api/v1/stores?store_ids=" + second, Token: clerk})
		require.Equal(t, http.StatusOK, w.Code)
		testutil.Decode(t, w, &stores)
		assert.Empty(t, stores)
	})

	t.Run("sub-account cannot bind", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/stores",
			Token:  clerk,
			Body:   map[string]string{"mall_id": shopee.ID.String(), "name": "Mine", "external_id": "s-9"},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("disabling the sub-account revokes its session", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/sub-accounts/" + sub.ID.String(),
			Token:  owner,
			Body:   map[string]string{"status": "disabled"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(testutil.Request{Path: "/api/v1/stores", Token: clerk})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unbind frees quota", func(t *testing.T) {
		w := env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/stores/" + second, Token: owner})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env.bindStore(owner, shopee, "s-3")
	})
}

func TestSettlements(t *testing.T) {
	env := newAPIEnv(t)
	env.level("free", 2, 0, true)
	shopee := env.mall("shopee-my")

	owner := env.registerAndLogin("seller")
	store := env.bindStore(owner, shopee, "s-1")
	other := env.bindStore(env.registerAndLogin("rival"), shopee, "r-1")

	rows := []map[string]any{
		{"store_id": store, "order_no": "A1", "sku": "SKU-1", "volume": 2, "avg_price": "10.00", "status": "pending", "ordered_at": "2026-05-01T10:00:00Z"},
		{"store_id": store, "order_no": "A2", "sku": "SKU-2", "volume": 1, "avg_price": "30.00", "status": "arrived", "ordered_at": "2026-05-02T10:00:00Z", "settled_at": "2026-05-10T00:00:00Z"},
	}

	t.Run("import", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/settlements/import",
			Token:  owner,
			Body:   map[string]any{"rows": rows},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result settlementapp.ImportResult
		testutil.Decode(t, w, &result)
		assert.Equal(t, 2, result.Created)
	})

	t.Run("import into an invisible store is rejected", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/settlements/import",
			Token:  owner,
			Body: map[string]any{"rows": []map[string]any{
				{"store_id": other, "order_no": "X1", "sku": "SKU-1", "volume": 1, "avg_price": "1.00", "status": "pending", "ordered_at": "2026-05-01T10:00:00Z"},
			}},
		})
		testutil.AssertError(t, w, http.StatusForbidden, "ERR_FORBIDDEN")
	})

	t.Run("row validation reports the field", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/settlements/import",
			Token:  owner,
			Body: map[string]any{"rows": []map[string]any{
				{"store_id": store, "order_no": "B1", "sku": "SKU-1", "status": "shipped", "ordered_at": "2026-05-01T10:00:00Z"},
			}},
		})
		testutil.AssertError(t, w, http.StatusBadRequest, "ERR_VALIDATION")
		assert.Contains(t, w.Body.String(), "rows[0].status")
	})

	t.Run("cost prices", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/cost-prices",
			Token:  owner,
			Body: map[string]any{"items": []map[string]any{
				{"store_id": store, "sku": "SKU-1", "cost_price": "4.00"},
			}},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(testutil.Request{Path: "/api/v1/cost-prices", Token: owner})
		require.Equal(t, http.StatusOK, w.Code)
		var costs []settlementapp.CostPriceInfo
		testutil.Decode(t, w, &costs)
		require.Len(t, costs, 1)
		assert.Equal(t, "4", costs[0].CostPrice.String())
	})

	t.Run("list computes profit", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/settlements?sku=SKU-1", Token: owner})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var lines []settlementapp.LineInfo
		testutil.Decode(t, w, &lines)
		require.Len(t, lines, 1)
		assert.Equal(t, "20", lines[0].Revenue.String())
		assert.Equal(t, "12", lines[0].GrossProfit.String())
		assert.Equal(t, "0.6", lines[0].ProfitRate.String())
	})

	t.Run("summary", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/settlements/summary", Token: owner})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var summary settlement.Summary
		testutil.Decode(t, w, &summary)
		assert.Equal(t, "20", summary.PendingRevenue.String())
		assert.Equal(t, "30", summary.ArrivedRevenue.String())
		assert.EqualValues(t, 1, summary.MissingCostCount)
	})

	t.Run("inverted date range", func(t *testing.T) {
		w := env.do(testutil.Request{
			Path:  "/api/v1/settlements?start_date=2026-05-10&end_date=2026-05-01",
			Token: owner,
		})
		testutil.AssertError(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})

	t.Run("statement needs a renderer", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/settlements/statement", Token: owner})
		testutil.AssertError(t, w, http.StatusUnprocessableEntity, "ERR_INVALID_STATE")
	})
}

func TestAdminConsole(t *testing.T) {
	env := newAPIEnv(t)
	env.level("free", 1, 0, true)
	pro := env.level("pro", 5, 3, false)
	shopee := env.mall("shopee-my")

	customer := env.registerAndLogin("buyer")
	env.bindStore(customer, shopee, "s-1")
	admin := env.superAdmin()

	t.Run("customer token cannot reach the console", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/admin/users", Token: customer})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	var userID string
	t.Run("list users", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/admin/users?keyword=buy", Token: admin})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var users []adminapp.UserInfo
		testutil.Decode(t, w, &users)
		require.Len(t, users, 1)
		userID = users[0].ID.String()
	})
	require.NotEmpty(t, userID)

	t.Run("membership needs exactly one of expiry or extension", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/admin/users/" + userID + "/membership",
			Token:  admin,
			Body:   map[string]any{"level_id": pro.ID.String()},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("upgrade raises the store quota", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/admin/users/" + userID + "/membership",
			Token:  admin,
			Body:   map[string]any{"level_id": pro.ID.String(), "extend_days": 30},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(testutil.Request{Path: "/api/v1/membership", Token: customer})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var info accountapp.MembershipInfo
		testutil.Decode(t, w, &info)
		require.NotNil(t, info.Level)
		assert.Equal(t, "pro", info.Level.Code)
		assert.Equal(t, 5, info.Quota.Stores)
		assert.EqualValues(t, 1, info.Usage.Stores)

		env.bindStore(customer, shopee, "s-2")
	})

	t.Run("disabling a user revokes its session", func(t *testing.T) {
		w := env.do(testutil.Request{
			Method: http.MethodPut,
			Path:   "/api/v1/admin/users/" + userID + "/status",
			Token:  admin,
			Body:   map[string]string{"status": "disabled"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(testutil.Request{Path: "/api/v1/stores", Token: customer})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(testutil.Request{
			Method: http.MethodPost,
			Path:   "/api/v1/auth/login",
			Body:   map[string]string{"username": "buyer", "password": testPassword},
		})
		testutil.AssertError(t, w, http.StatusForbidden, "ERR_ACCOUNT_DISABLED")
	})

	t.Run("default level cannot be deleted", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/admin/membership-levels", Token: admin})
		require.Equal(t, http.StatusOK, w.Code)
		var levels []accountapp.LevelInfo
		testutil.Decode(t, w, &levels)
		for _, l := range levels {
			if l.IsDefault {
				w = env.do(testutil.Request{Method: http.MethodDelete, Path: "/api/v1/admin/membership-levels/" + l.ID.String(), Token: admin})
				assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
			}
		}
	})
}

func TestPluginRelease(t *testing.T) {
	env := newAPIEnv(t)
	env.level("free", 1, 0, true)
	admin := env.superAdmin()
	customer := env.registerAndLogin("viewer")

	w := env.do(testutil.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/admin/plugins",
		Token:  admin,
		Body:   map[string]any{"code": "helper", "name": "Shop Helper", "version": "1.2.0"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created adminapp.PluginInfo
	testutil.Decode(t, w, &created)

	t.Run("draft is hidden from customers", func(t *testing.T) {
		w := env.do(testutil.Request{Path: "/api/v1/plugins", Token: customer})
		require.Equal(t, http.StatusOK, w.Code)
		var plugins []adminapp.PluginInfo
		testutil.Decode(t, w, &plugins)
		assert.Empty(t, plugins)
	})

	t.Run("upload package", func(t *testing.T) {
		w := uploadPackage(t, env, admin, created.ID.String(), []byte("PK\x03\x04zip-bytes"))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p adminapp.PluginInfo
		testutil.Decode(t, w, &p)
		assert.Equal(t, "/static/plugins/plugins/helper/1.2.0.zip", p.DownloadURL)
		assert.EqualValues(t, 13, p.PackageSize)
	})

	t.Run("empty package", func(t *testing.T) {
		w := uploadPackage(t, env, admin, created.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("published plugin is listed", func(t *testing.T) {
		w := env.do(testutil.Request{Method: http.MethodPost, Path: "/api/v1/admin/plugins/" + created.ID.String() + "/publish", Token: admin})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(testutil.Request{Path: "/api/v1/plugins", Token: customer})
		require.Equal(t, http.StatusOK, w.Code)
		var plugins []adminapp.PluginInfo
		testutil.Decode(t, w, &plugins)
		require.Len(t, plugins, 1)
		assert.Equal(t, "helper", plugins[0].Code)
	})
}

func uploadPackage(t *testing.T, env *apiEnv, token, id string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "helper.zip")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/plugins/"+id+"/package", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
