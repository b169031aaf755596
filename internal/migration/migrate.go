package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver
	"todoclient/internal/database"
	"todoclient/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded SQL migrations to a PostgreSQL database.
// SQLite deployments use database.AutoMigrate instead.
type Migrator struct {
	migrate *migrate.Migrate
	db      *sql.DB
}

// Source opens the embedded migrations
func Source() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	return src, nil
}

// New connects to databaseURL and prepares the migrations
func New(databaseURL string) (*Migrator, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := Source()
	if err != nil {
		db.Close()
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = migrateLogger{}

	return &Migrator{migrate: m, db: db}, nil
}

// NewFromEnv uses the same DB_* variables as the server
func NewFromEnv() (*Migrator, error) {
	cfg := database.NewConfigFromEnv()
	if cfg.Driver != database.DriverPostgres {
		return nil, fmt.Errorf("migrations require DB_DRIVER=%s, got %q", database.DriverPostgres, cfg.Driver)
	}
	return New(cfg.PostgresURL())
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// Steps runs n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	if err := m.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %d migration steps: %w", n, err)
	}
	return nil
}

// Version returns the current migration version; 0 when none has run
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the version without running migrations, to recover from a dirty state
func (m *Migrator) Force(version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force migration version: %w", err)
	}
	return nil
}

// Close releases the source and the database connection
func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	logging.Component("migrate").Infof(format, v...)
}

func (migrateLogger) Verbose() bool { return false }
