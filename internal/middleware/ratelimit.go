package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"todoclient/internal/logging"
	"todoclient/internal/models"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int64
	// AuthAttempts is the number of login/register calls per AuthWindow and IP
	AuthAttempts int64
	AuthWindow   time.Duration
}

// NewRateLimitConfigFromEnv creates rate limit config from environment variables
func NewRateLimitConfigFromEnv() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
		RequestsPerMin: int64(getEnvInt("RATE_LIMIT_REQUESTS_PER_MIN", 300)),
		AuthAttempts:   int64(getEnvInt("RATE_LIMIT_AUTH_ATTEMPTS", 10)),
		AuthWindow:     time.Duration(getEnvInt("RATE_LIMIT_AUTH_WINDOW_MINUTES", 15)) * time.Minute,
	}
}

// GlobalRateLimiter limits every request per client IP
func GlobalRateLimiter(config *RateLimitConfig) gin.HandlerFunc {
	if !config.Enabled {
		logging.Component("http").Info("Rate limiting is disabled")
		return func(c *gin.Context) { c.Next() }
	}
	rate := limiter.Rate{Period: time.Minute, Limit: config.RequestsPerMin}
	return newRateLimiter("global", rate, func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	})
}

// AuthRateLimiter is the stricter limit on credential endpoints
func AuthRateLimiter(config *RateLimitConfig) gin.HandlerFunc {
	if !config.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	rate := limiter.Rate{Period: config.AuthWindow, Limit: config.AuthAttempts}
	return newRateLimiter("auth", rate, func(c *gin.Context) string {
		return "auth:ip:" + c.ClientIP()
	})
}

func newRateLimiter(name string, rate limiter.Rate, key func(*gin.Context) string) gin.HandlerFunc {
	instance := limiter.New(memory.NewStore(), rate)

	logging.Component("http").WithFields(logrus.Fields{
		"limiter": name,
		"limit":   rate.Limit,
		"period":  rate.Period.String(),
	}).Info("Rate limiting enabled")

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(key),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logging.Component("http").WithFields(logrus.Fields{
				"limiter":   name,
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.Fail("Too many requests. Please try again later."))
		}),
	)
}
