package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"todoclient/internal/auth"
	"todoclient/internal/models"
)

const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
)

// RequireAuth rejects requests without a valid bearer token with a 401 envelope.
// The client treats any 401 as a signal to refresh.
func RequireAuth(jwtConfig *auth.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("Authorization header is required"))
			return
		}

		claims, err := auth.ValidateAccessToken(token, jwtConfig)
		if errors.Is(err, auth.ErrExpiredToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("Access token has expired"))
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail("Invalid access token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID())
		c.Set(ContextKeyUserEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireAuth
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}
