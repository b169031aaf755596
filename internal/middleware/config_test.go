package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MW_TEST_STRING", "value")
	t.Setenv("MW_TEST_INT", "42")
	t.Setenv("MW_TEST_BAD_INT", "forty-two")
	t.Setenv("MW_TEST_BOOL", "false")

	assert.Equal(t, "value", getEnv("MW_TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("MW_TEST_UNSET", "default"))
	assert.Equal(t, 42, getEnvInt("MW_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("MW_TEST_BAD_INT", 1))
	assert.False(t, getEnvBool("MW_TEST_BOOL", true))
	assert.True(t, getEnvBool("MW_TEST_UNSET", true))
}

func TestParseCommaSeparated(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseCommaSeparated(" a, ,b ,"))
	assert.Empty(t, parseCommaSeparated(""))
}

func TestConfigsFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cors := NewCORSConfigFromEnv()
		assert.True(t, cors.Enabled)
		assert.True(t, cors.AllowCredentials)
		assert.Contains(t, cors.AllowedMethods, "PATCH")

		rl := NewRateLimitConfigFromEnv()
		assert.Equal(t, int64(300), rl.RequestsPerMin)
		assert.Equal(t, int64(10), rl.AuthAttempts)
		assert.Equal(t, 15*time.Minute, rl.AuthWindow)

		sec := NewSecurityConfigFromEnv()
		assert.Equal(t, int64(1<<20), sec.MaxRequestBodySize)
		assert.Empty(t, sec.TrustedProxies)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")
		t.Setenv("CORS_MAX_AGE", "60")
		t.Setenv("RATE_LIMIT_ENABLED", "false")
		t.Setenv("RATE_LIMIT_AUTH_WINDOW_MINUTES", "1")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.1")

		assert.Equal(t, []string{"https://a.test", "https://b.test"}, NewCORSConfigFromEnv().AllowedOrigins)
		assert.Equal(t, 60, NewCORSConfigFromEnv().MaxAge)
		assert.False(t, NewRateLimitConfigFromEnv().Enabled)
		assert.Equal(t, time.Minute, NewRateLimitConfigFromEnv().AuthWindow)
		assert.Equal(t, []string{"10.0.0.1"}, NewSecurityConfigFromEnv().TrustedProxies)
	})
}
