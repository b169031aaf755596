package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client settings. Precedence: defaults, then the YAML file, then environment.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PageSize       int           `yaml:"page_size"`
	Debounce       time.Duration `yaml:"debounce"`
	SessionFile    string        `yaml:"session_file"`

	Render struct {
		Mode        string `yaml:"mode"` // "append" or "window"
		Overscan    int    `yaml:"overscan"`
		RowEstimate int    `yaml:"row_estimate"`
	} `yaml:"render"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{
		APIURL:         "http://localhost:8080",
		RequestTimeout: 15 * time.Second,
		PageSize:       20,
		Debounce:       400 * time.Millisecond,
		SessionFile:    defaultSessionFile(),
	}
	cfg.Render.Mode = "window"
	cfg.Render.Overscan = 5
	cfg.Render.RowEstimate = 4
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (optional) and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile returns the first config file found, or "" if there is none
func FindConfigFile() string {
	if path := os.Getenv("TODO_CONFIG"); path != "" {
		return path
	}

	locations := []string{"todo.yaml", "todo.yml", ".todo.yaml", ".todo.yml"}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	switch c.Render.Mode {
	case "append", "window":
	default:
		return fmt.Errorf("render.mode must be append or window, got %q", c.Render.Mode)
	}
	return nil
}

// Save writes the configuration as YAML
func Save(cfg *Config, path string) error {
	if path == "" {
		path = "todo.yaml"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("TODO_API_URL", c.APIURL)
	c.RequestTimeout = getEnvDuration("TODO_REQUEST_TIMEOUT", c.RequestTimeout)
	c.PageSize = getEnvInt("TODO_PAGE_SIZE", c.PageSize)
	if ms := getEnvInt("TODO_DEBOUNCE_MS", -1); ms >= 0 {
		c.Debounce = time.Duration(ms) * time.Millisecond
	}
	c.SessionFile = getEnv("TODO_SESSION_FILE", c.SessionFile)
	c.Render.Mode = getEnv("TODO_RENDER_MODE", c.Render.Mode)
	c.Render.Overscan = getEnvInt("TODO_OVERSCAN", c.Render.Overscan)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todo-session.yaml"
	}
	return filepath.Join(dir, "todo", "session.yaml")
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
