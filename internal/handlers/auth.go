package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"todoclient/internal/auth"
	"todoclient/internal/logging"
	"todoclient/internal/middleware"
	"todoclient/internal/models"
)

// RefreshCookieName carries the refresh token. It is scoped to /auth so it never rides on todo calls.
const (
	RefreshCookieName = "refresh_token"
	refreshCookiePath = "/auth"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService  *auth.Service
	secureCookie bool
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Invalid request payload: "+err.Error()))
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
		return
	}

	session, err := h.authService.Register(c.Request.Context(), &req)
	if errors.Is(err, auth.ErrUserAlreadyExists) {
		c.JSON(http.StatusConflict, models.Fail("A user with this email already exists"))
		return
	}
	if err != nil {
		logging.Component("auth").WithError(err).Error("Registration failed")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to register user"))
		return
	}

	h.setRefreshCookie(c, session)
	c.JSON(http.StatusCreated, models.OK("Registered", models.AuthPayload{
		User:  session.User.Profile(),
		Token: session.AccessToken,
	}))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Invalid request payload: "+err.Error()))
		return
	}

	session, err := h.authService.Login(c.Request.Context(), &req)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.Fail("Invalid email or password"))
		return
	case errors.Is(err, auth.ErrUserInactive):
		c.JSON(http.StatusForbidden, models.Fail("User account is inactive"))
		return
	case err != nil:
		logging.Component("auth").WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to login"))
		return
	}

	h.setRefreshCookie(c, session)
	c.JSON(http.StatusOK, models.OK("Logged in", models.AuthPayload{
		User:  session.User.Profile(),
		Token: session.AccessToken,
	}))
}

// Refresh handles POST /auth/refresh and GET /auth/access-token.
// The refresh cookie is rotated on success and cleared on rejection.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, models.Fail("Refresh token is missing"))
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), token)
	switch {
	case errors.Is(err, auth.ErrRefreshTokenInvalid):
		h.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, models.Fail("Refresh token is invalid or expired"))
		return
	case errors.Is(err, auth.ErrUserInactive):
		h.clearRefreshCookie(c)
		c.JSON(http.StatusForbidden, models.Fail("User account is inactive"))
		return
	case err != nil:
		logging.Component("auth").WithError(err).Error("Token refresh failed")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to refresh token"))
		return
	}

	h.setRefreshCookie(c, session)
	c.JSON(http.StatusOK, models.OK("Token refreshed", models.TokenPayload{Token: session.AccessToken}))
}

// Me handles GET /auth/me and GET /auth/user-details
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("User not authenticated"))
		return
	}

	user, err := h.authService.UserByID(c.Request.Context(), userID)
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrUserInactive):
		c.JSON(http.StatusUnauthorized, models.Fail("User not found"))
		return
	case err != nil:
		logging.Component("auth").WithError(err).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to fetch profile"))
		return
	}

	c.JSON(http.StatusOK, models.OK("User details", user.Profile()))
}

// Logout handles POST /auth/logout. It succeeds even without a cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(RefreshCookieName); err == nil {
		if err := h.authService.Revoke(c.Request.Context(), token); err != nil {
			logging.Component("auth").WithError(err).Error("Failed to revoke refresh token")
			c.JSON(http.StatusInternalServerError, models.Fail("Failed to logout"))
			return
		}
	}
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, models.OK[any]("Logged out", nil))
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, session *auth.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, session.RefreshToken, int(session.RefreshTTL.Seconds()), refreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, "", -1, refreshCookiePath, "", h.secureCookie, true)
}
