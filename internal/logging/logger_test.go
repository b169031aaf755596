package logging

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var logEnvKeys = []string{
	"LOG_FILE_ENABLED", "LOG_FILE_PATH", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS", "LOG_COMPRESS", "LOG_LEVEL", "LOG_JSON_FORMAT", "LOG_STDOUT",
}

func clearLogEnv(t *testing.T) {
	for _, key := range logEnvKeys {
		t.Setenv(key, "")
	}
}

func TestNewLogConfigFromEnv(t *testing.T) {
	t.Run("uses default values when env vars not set", func(t *testing.T) {
		clearLogEnv(t)

		config := NewLogConfigFromEnv("todo")

		assert.True(t, config.Enabled, "Should be enabled by default")
		assert.Equal(t, "./logs/todo.log", config.FilePath)
		assert.Equal(t, 100, config.MaxSize)
		assert.Equal(t, 3, config.MaxBackups)
		assert.Equal(t, 28, config.MaxAge)
		assert.True(t, config.Compress)
		assert.Equal(t, "info", config.Level)
		assert.False(t, config.JSONFormat)
		assert.True(t, config.Stdout)
	})

	t.Run("uses custom values from environment", func(t *testing.T) {
		clearLogEnv(t)
		t.Setenv("LOG_FILE_ENABLED", "false")
		t.Setenv("LOG_FILE_PATH", "/var/log/custom.log")
		t.Setenv("LOG_MAX_SIZE_MB", "50")
		t.Setenv("LOG_MAX_BACKUPS", "5")
		t.Setenv("LOG_MAX_AGE_DAYS", "7")
		t.Setenv("LOG_COMPRESS", "false")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_JSON_FORMAT", "true")
		t.Setenv("LOG_STDOUT", "false")

		config := NewLogConfigFromEnv("devserver")

		assert.False(t, config.Enabled)
		assert.Equal(t, "/var/log/custom.log", config.FilePath)
		assert.Equal(t, 50, config.MaxSize)
		assert.Equal(t, 5, config.MaxBackups)
		assert.Equal(t, 7, config.MaxAge)
		assert.False(t, config.Compress)
		assert.Equal(t, "debug", config.Level)
		assert.True(t, config.JSONFormat)
		assert.False(t, config.Stdout)
	})

	t.Run("handles invalid values gracefully", func(t *testing.T) {
		clearLogEnv(t)
		t.Setenv("LOG_MAX_SIZE_MB", "invalid")
		t.Setenv("LOG_MAX_BACKUPS", "not-a-number")
		t.Setenv("LOG_COMPRESS", "maybe")

		config := NewLogConfigFromEnv("todo")

		assert.Equal(t, 100, config.MaxSize, "Should use default when parsing fails")
		assert.Equal(t, 3, config.MaxBackups, "Should use default when parsing fails")
		assert.True(t, config.Compress)
	})
}

func TestInitLogger(t *testing.T) {
	t.Run("initializes with text format", func(t *testing.T) {
		logger := InitLogger(&LogConfig{Level: "info"})

		assert.Equal(t, logrus.InfoLevel, logger.Level)
		assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
		assert.Same(t, Logger, logger)
	})

	t.Run("initializes with JSON format", func(t *testing.T) {
		logger := InitLogger(&LogConfig{Level: "debug", JSONFormat: true})

		assert.Equal(t, logrus.DebugLevel, logger.Level)
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("handles invalid log level", func(t *testing.T) {
		logger := InitLogger(&LogConfig{Level: "invalid-level"})
		assert.Equal(t, logrus.InfoLevel, logger.Level)
	})

	t.Run("discards output when no writer is enabled", func(t *testing.T) {
		logger := InitLogger(&LogConfig{Level: "info"})
		assert.Equal(t, io.Discard, logger.Out)
	})

	t.Run("writes to a rotated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		logger := InitLogger(&LogConfig{Enabled: true, FilePath: path, MaxSize: 1, Level: "info"})
		logger.Info("hello")
		assert.FileExists(t, path)
	})
}

func TestComponent(t *testing.T) {
	InitLogger(&LogConfig{Level: "info"})
	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	Logger.SetFormatter(&logrus.JSONFormatter{})

	Component("cache").Info("page stored")

	assert.Contains(t, buf.String(), `"component":"cache"`)
	assert.Contains(t, buf.String(), "page stored")
}
