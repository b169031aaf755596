// Package servertls serves the devserver over HTTPS when certificates are configured.
package servertls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"todoclient/internal/logging"
)

// Config holds TLS settings. With Enabled the refresh cookie is also marked Secure.
type Config struct {
	Enabled      bool
	CertFile     string
	KeyFile      string
	Port         string
	HTTPPort     string // plain listener that redirects to Port
	RedirectHTTP bool
	MinVersion   uint16
}

// NewConfigFromEnv reads TLS_* variables
func NewConfigFromEnv() *Config {
	return &Config{
		Enabled:      getEnvBool("TLS_ENABLED", false),
		CertFile:     getEnv("TLS_CERT_FILE", "./certs/server.crt"),
		KeyFile:      getEnv("TLS_KEY_FILE", "./certs/server.key"),
		Port:         getEnv("TLS_PORT", "8443"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		RedirectHTTP: getEnvBool("TLS_REDIRECT_HTTP", true),
		MinVersion:   ParseVersion(getEnv("TLS_MIN_VERSION", "1.2")),
	}
}

// ServerConfig loads the key pair into a *tls.Config
func (c *Config) ServerConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, errors.New("TLS is not enabled")
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	logging.Component("tls").WithFields(logrus.Fields{
		"cert":        c.CertFile,
		"min_version": tls.VersionName(c.MinVersion),
	}).Info("TLS configured")

	return &tls.Config{
		Certificates:     []tls.Certificate{cert},
		MinVersion:       c.MinVersion,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
	}, nil
}

// ParseVersion maps "1.2" and "1.3" to their constants. Anything else is TLS 1.2.
func ParseVersion(version string) uint16 {
	switch version {
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		logging.Component("tls").Warnf("Unsupported TLS version '%s', using TLS 1.2", version)
		return tls.VersionTLS12
	}
}

// RedirectHandler sends plain HTTP requests to the HTTPS port.
// 308 keeps the method and body, so a POST /auth/refresh stays a POST.
func RedirectHandler(httpsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		target := "https://" + host
		if httpsPort != "443" {
			target += ":" + httpsPort
		}
		target += r.URL.RequestURI()

		logging.Component("tls").WithFields(logrus.Fields{
			"method": r.Method,
			"target": target,
		}).Debug("Redirecting to HTTPS")
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
