// Package database opens the development backend's GORM connection.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"todoclient/internal/logging"
	"todoclient/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the driver and connection settings
type Config struct {
	Driver   string
	Path     string // sqlite file or DSN
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewConfigFromEnv reads DB_* variables. SQLite is the default driver.
func NewConfigFromEnv() *Config {
	return &Config{
		Driver:          getEnv("DB_DRIVER", DriverSQLite),
		Path:            getEnv("DB_PATH", "data/todo.db"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		Name:            getEnv("DB_NAME", "todo"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
	}
}

// PostgresURL is the URL form used by golang-migrate
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverSQLite:
		if err := ensureDirForSQLite(c.Path); err != nil {
			return nil, err
		}
		return sqlite.Open(c.Path), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Connect opens the database and configures the pool. GORM logs go through logrus.
func Connect(cfg *Config) (*gorm.DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(logging.Logger, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	logging.Component("database").WithField("driver", cfg.Driver).Info("Database connected")
	return db, nil
}

// AutoMigrate creates or updates the tables of the backend models
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Todo{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ensureDirForSQLite creates the parent directory of a SQLite file
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean, _, _ = strings.Cut(clean, "?")
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %q: %w", dir, err)
	}
	return nil
}

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
