package servertls

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		cfg := NewConfigFromEnv()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, "8443", cfg.Port)
		assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("TLS_ENABLED", "true")
		t.Setenv("TLS_PORT", "9443")
		t.Setenv("TLS_MIN_VERSION", "1.3")

		cfg := NewConfigFromEnv()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "9443", cfg.Port)
		assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	})
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS12), ParseVersion("1.2"))
	assert.Equal(t, uint16(tls.VersionTLS13), ParseVersion("1.3"))
	assert.Equal(t, uint16(tls.VersionTLS12), ParseVersion("1.0"))
}

func TestServerConfig(t *testing.T) {
	_, err := (&Config{}).ServerConfig()
	assert.Error(t, err)

	_, err = (&Config{Enabled: true, CertFile: "missing.crt", KeyFile: "missing.key"}).ServerConfig()
	assert.ErrorContains(t, err, "failed to load certificate")
}

func TestRedirectHandler(t *testing.T) {
	tests := []struct {
		name   string
		port   string
		target string
	}{
		{"custom port", "8443", "https://localhost:8443/auth/refresh?x=1"},
		{"default port", "443", "https://localhost/auth/refresh?x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://localhost:8080/auth/refresh?x=1", nil)
			w := httptest.NewRecorder()
			RedirectHandler(tt.port).ServeHTTP(w, req)

			assert.Equal(t, http.StatusPermanentRedirect, w.Code)
			assert.Equal(t, tt.target, w.Header().Get("Location"))
		})
	}
}
