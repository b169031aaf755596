package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"todoclient/internal/models"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *gorm.DB
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse represents the detailed health payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// BasicHealth handles GET /health
func (h *HealthHandler) BasicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.OK("healthy", gin.H{"status": "healthy"}))
}

// DetailedHealth handles GET /health/detailed. An unreachable database yields 503.
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	checks := map[string]HealthCheck{
		"database":   h.checkDatabase(c.Request.Context()),
		"migrations": h.checkMigrations(),
		"system":     systemInfo(),
	}

	status := "healthy"
	if checks["database"].Status != "healthy" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    formatDuration(time.Since(h.startTime)),
		Version:   h.version,
		Checks:    checks,
	}

	if status == "unhealthy" {
		c.JSON(http.StatusServiceUnavailable, models.Envelope[HealthResponse]{Error: true, Message: status, Data: response})
		return
	}
	c.JSON(http.StatusOK, models.OK(status, response))
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	if h.db == nil {
		return HealthCheck{Status: "unhealthy", Message: "Database connection not initialized"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return HealthCheck{Status: "unhealthy", Message: "Failed to get database instance"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return HealthCheck{
			Status:  "unhealthy",
			Message: "Database ping failed",
			Details: map[string]any{"error": err.Error()},
		}
	}

	stats := sqlDB.Stats()
	return HealthCheck{
		Status:  "healthy",
		Message: "Database connection is healthy",
		Details: map[string]any{
			"dialect":          h.db.Dialector.Name(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration_ms": stats.WaitDuration.Milliseconds(),
		},
	}
}

// checkMigrations reports the golang-migrate version, when the schema was built by it
func (h *HealthHandler) checkMigrations() HealthCheck {
	if h.db == nil {
		return HealthCheck{Status: "unknown", Message: "Database not available"}
	}
	if !h.db.Migrator().HasTable("schema_migrations") {
		return HealthCheck{Status: "unknown", Message: "Schema managed by auto-migration"}
	}

	var version uint
	var dirty bool
	if err := h.db.Raw("SELECT version, dirty FROM schema_migrations LIMIT 1").Row().Scan(&version, &dirty); err != nil {
		return HealthCheck{Status: "unknown", Message: "Could not read migration status"}
	}

	check := HealthCheck{
		Status:  "healthy",
		Message: "Migrations are up to date",
		Details: map[string]any{"version": version, "dirty": dirty},
	}
	if dirty {
		check.Status = "warning"
		check.Message = "Database is in dirty state - manual intervention required"
	}
	return check
}

func systemInfo() HealthCheck {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return HealthCheck{
		Status: "info",
		Details: map[string]any{
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": m.Alloc / 1024 / 1024,
			"num_gc":          m.NumGC,
			"go_version":      runtime.Version(),
		},
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
