package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"todoclient/internal/logging"
	"todoclient/internal/models"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	MaxRequestBodySize int64
	TrustedProxies     []string
}

// NewSecurityConfigFromEnv creates security config from environment variables
func NewSecurityConfigFromEnv() *SecurityConfig {
	return &SecurityConfig{
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		TrustedProxies:     parseCommaSeparated(getEnv("TRUSTED_PROXIES", "")),
	}
}

// SecurityHeaders sets the headers an API should always send
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestSizeLimit rejects bodies larger than maxSize
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.Fail("Request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// Recovery turns panics into a 500 envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Component("http").WithField("panic", recovered).Error("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.Fail("An internal error occurred. Please try again later."))
	})
}

// UUIDParam rejects requests whose path parameter is not a UUID
func UUIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := uuid.Validate(c.Param(name)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.Fail("Invalid "+name+" format"))
			return
		}
		c.Next()
	}
}
