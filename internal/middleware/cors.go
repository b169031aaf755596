package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"todoclient/internal/logging"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string // "*" allows any origin
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool // required for the refresh cookie from a browser
	MaxAge           int  // preflight cache in seconds
}

// NewCORSConfigFromEnv creates CORS config from environment variables
func NewCORSConfigFromEnv() *CORSConfig {
	return &CORSConfig{
		Enabled:          getEnvBool("CORS_ENABLED", true),
		AllowedOrigins:   parseCommaSeparated(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		AllowedMethods:   parseCommaSeparated(getEnv("CORS_ALLOWED_METHODS", "GET,POST,PATCH,DELETE,OPTIONS")),
		AllowedHeaders:   parseCommaSeparated(getEnv("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Accept,Authorization")),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
	}
}

// CORS answers preflight requests and echoes allowed origins
func CORS(config *CORSConfig) gin.HandlerFunc {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !config.Enabled || origin == "" {
			c.Next()
			return
		}

		if !isOriginAllowed(origin, config.AllowedOrigins) {
			logging.Component("http").WithField("origin", origin).Warn("CORS request from disallowed origin")
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.HasPrefix(a, "*."):
			if strings.HasSuffix(origin, a[1:]) {
				return true
			}
		}
	}
	return false
}
