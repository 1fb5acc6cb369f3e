package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/domain/account"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/middleware"
)

// refreshCookieSuffix names the refresh cookie after the session cookie
const refreshCookieSuffix = "_refresh"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *accountapp.AuthService
	cookie      config.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *accountapp.AuthService, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// Register godoc
// @Summary      Register a main account
// @Description  Create a main account on the default membership level
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} dto.Response{data=accountapp.AccountInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	info, err := h.authService.Register(c.Request.Context(), accountapp.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, info)
}

// Login godoc
// @Summary      Customer login
// @Description  Authenticate a main account or a sub-account. The access token is also set as an HttpOnly cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.login(c, account.Type(req.AccountType), req.Username, req.Password)
}

// AdminLogin godoc
// @Summary      Console login
// @Description  Authenticate a console operator
// @Tags         admin-auth
// @Accept       json
// @Produce      json
// @Param        request body AdminLoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/auth/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.login(c, account.TypeAdmin, req.Username, req.Password)
}

func (h *AuthHandler) login(c *gin.Context, accountType account.Type, username, password string) {
	result, err := h.authService.Login(c.Request.Context(), accountapp.LoginInput{
		AccountType: accountType,
		Username:    username,
		Password:    password,
		IP:          c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.setSessionCookies(c, result.Tokens)
	h.Success(c, LoginResponse{
		Token:   toTokenResponse(result.Tokens),
		Account: result.Account,
	})
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Exchange a refresh token for a new pair. The token is read from the body, then from the refresh cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest false "Refresh token"
// @Success      200 {object} dto.Response{data=TokenResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token, _ = c.Cookie(h.refreshCookieName())
	}
	if token == "" {
		h.Unauthorized(c, "Refresh token is required")
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.setSessionCookies(c, tokens)
	h.Success(c, toTokenResponse(tokens))
}

// Logout godoc
// @Summary      Logout
// @Description  Revoke the current access token (and the refresh token, when given) and clear the session cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} SuccessResponse
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	refresh := strings.TrimSpace(req.RefreshToken)
	if refresh == "" {
		refresh, _ = c.Cookie(h.refreshCookieName())
	}

	if err := h.authService.Logout(c.Request.Context(), claims, refresh); err != nil {
		h.HandleError(c, err)
		return
	}
	h.clearSessionCookies(c)
	h.Success(c, nil)
}

// Me godoc
// @Summary      Current account
// @Description  Return the profile of the authenticated account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.Response{data=accountapp.AccountInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	info, err := h.authService.Me(c.Request.Context(), p)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

func (h *AuthHandler) refreshCookieName() string {
	return h.cookie.Name + refreshCookieSuffix
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, tokens *auth.TokenPair) {
	now := time.Now()
	h.writeCookie(c, h.cookie.Name, tokens.AccessToken, int(tokens.AccessTokenExpiresAt.Sub(now).Seconds()))
	h.writeCookie(c, h.refreshCookieName(), tokens.RefreshToken, int(tokens.RefreshTokenExpiresAt.Sub(now).Seconds()))
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	h.writeCookie(c, h.cookie.Name, "", -1)
	h.writeCookie(c, h.refreshCookieName(), "", -1)
}

func (h *AuthHandler) writeCookie(c *gin.Context, name, value string, maxAge int) {
	path := h.cookie.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: sameSiteMode(h.cookie.SameSite),
	})
}

func sameSiteMode(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
