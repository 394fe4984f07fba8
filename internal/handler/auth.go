package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contentapp/backend/internal/model"
	"github.com/contentapp/backend/internal/service"
)

const (
	accessTokenCookie = "access_token"
	userIDCookie      = "user_id"
	usernameCookie    = "username"
)

// sessionCookies is every name cleared on logout. The last three are legacy
// names older frontends may still carry.
var sessionCookies = []string{
	accessTokenCookie,
	userIDCookie,
	usernameCookie,
	"twoFactorToken",
	"memberId",
	"rememberDevice",
}

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login godoc
// @Summary Login
// @Description Issues an access token and session cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, protectedID, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookies(c, token, protectedID)
	c.JSON(http.StatusOK, model.LoginResponse{
		Status:    "Success",
		ExpiresIn: int64(h.svc.AccessTTL().Seconds()),
	})
}

// Register godoc
// @Summary Register a new user
// @Description Sign up when ALLOW_SIGNUP is true. Issues a session like login.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email, username and password"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/admin/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, protectedID, err := h.svc.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookies(c, token, protectedID)
	c.JSON(http.StatusOK, model.LoginResponse{
		Status:    "Success",
		ExpiresIn: int64(h.svc.AccessTTL().Seconds()),
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the session record (if any) and clears every session cookie. Always succeeds.
// @Tags auth
// @Produce json
// @Success 200 {object} model.LogoutResponse
// @Router /api/admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	protectedID, _ := c.Cookie(userIDCookie)
	_ = h.svc.Logout(c.Request.Context(), protectedID)

	// Cookies are cleared no matter what happened above.
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, model.LogoutResponse{Status: "logged_out"})
}

// Config godoc
// @Summary Get auth config
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthConfigResponse
// @Router /api/admin/config [get]
func (h *AuthHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, model.AuthConfigResponse{
		AllowSignup: h.svc.AllowSignup(),
	})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/admin/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, token *model.Token, protectedID string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(accessTokenCookie, token.Value, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
	c.SetCookie(userIDCookie, protectedID, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
	c.SetCookie(usernameCookie, token.Username, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	for _, name := range sessionCookies {
		c.SetCookie(name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
	}
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username/password was entered"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "signup disabled"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
