// Command devserver runs a local todo backend for the todo client:
// the /todos and /auth API with cookie-based refresh.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"todoclient/internal/auth"
	"todoclient/internal/database"
	"todoclient/internal/handlers"
	"todoclient/internal/jobs"
	"todoclient/internal/logging"
	"todoclient/internal/middleware"
	"todoclient/internal/servertls"
	"todoclient/internal/storage"
)

var version = "dev"

// serverConfig is the process-level configuration read from the environment
type serverConfig struct {
	Port            string
	TLS             *servertls.Config
	UseMemory       bool
	SecureCookie    bool
	CleanupInterval time.Duration
	TokenRetention  time.Duration
	ShutdownTimeout time.Duration
}

func newServerConfigFromEnv() serverConfig {
	tlsConfig := servertls.NewConfigFromEnv()
	return serverConfig{
		Port:            getEnv("PORT", "8080"),
		TLS:             tlsConfig,
		UseMemory:       os.Getenv("USE_MEMORY_STORAGE") == "true",
		SecureCookie:    tlsConfig.Enabled || os.Getenv("COOKIE_SECURE") == "true",
		CleanupInterval: time.Hour,
		TokenRetention:  24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
	}
}

func main() {
	logging.InitLogger(logging.NewLogConfigFromEnv("devserver"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, newServerConfigFromEnv()); err != nil {
		logging.Logger.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, cfg serverConfig) error {
	db, store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	jwtConfig := auth.NewJWTConfigFromEnv()
	authService := auth.NewService(db, jwtConfig)

	scheduler := jobs.NewScheduler(time.UTC)
	if _, err := scheduler.Every("refresh-token-cleanup", cfg.CleanupInterval, time.Minute,
		jobs.TokenCleanup(authService, cfg.TokenRetention, nil)); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(db, store, authService, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{srv}

	serve := srv.ListenAndServe
	if cfg.TLS != nil && cfg.TLS.Enabled {
		tlsConfig, err := cfg.TLS.ServerConfig()
		if err != nil {
			return err
		}
		srv.Addr = ":" + cfg.TLS.Port
		srv.TLSConfig = tlsConfig
		serve = func() error { return srv.ListenAndServeTLS("", "") }

		if cfg.TLS.RedirectHTTP {
			servers = append(servers, &http.Server{
				Addr:              ":" + cfg.TLS.HTTPPort,
				Handler:           servertls.RedirectHandler(cfg.TLS.Port),
				ReadHeaderTimeout: 10 * time.Second,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Logger.Infof("Starting server on %s...", srv.Addr)
		return ignoreClosed(serve())
	})
	for _, redirect := range servers[1:] {
		g.Go(func() error {
			logging.Logger.Infof("Redirecting HTTP on %s to HTTPS", redirect.Addr)
			return ignoreClosed(redirect.ListenAndServe())
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logging.Logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// openStorage connects the database. Accounts always live in GORM; with
// USE_MEMORY_STORAGE the todos are kept in memory and accounts in an in-memory SQLite.
func openStorage(cfg serverConfig) (*gorm.DB, storage.Store, error) {
	dbConfig := database.NewConfigFromEnv()
	if cfg.UseMemory {
		dbConfig.Driver = database.DriverSQLite
		dbConfig.Path = "file:devserver?mode=memory&cache=shared"
	}

	db, err := database.Connect(dbConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}

	if cfg.UseMemory {
		logging.Logger.Info("Using in-memory todo storage")
		return db, storage.NewStorage(), nil
	}
	logging.Logger.Infof("Using %s todo storage", dbConfig.Driver)
	return db, storage.NewGormStorage(db), nil
}

func newRouter(db *gorm.DB, store storage.Store, authService *auth.Service, cfg serverConfig) *gin.Engine {
	securityConfig := middleware.NewSecurityConfigFromEnv()
	rateLimitConfig := middleware.NewRateLimitConfigFromEnv()

	router := gin.New()
	if err := router.SetTrustedProxies(securityConfig.TrustedProxies); err != nil {
		logging.Logger.WithError(err).Warn("Ignoring invalid TRUSTED_PROXIES")
	}
	router.Use(
		middleware.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(middleware.NewCORSConfigFromEnv()),
		middleware.RequestSizeLimit(securityConfig.MaxRequestBodySize),
		middleware.RequestLogger(),
		middleware.GlobalRateLimiter(rateLimitConfig),
	)

	handlers.RegisterRoutes(router, handlers.Router{
		Auth:      handlers.NewAuthHandler(authService, cfg.SecureCookie),
		Todos:     handlers.NewTodoHandler(store),
		Health:    handlers.NewHealthHandler(db, version),
		JWT:       authService.Config(),
		RateLimit: rateLimitConfig,
	})
	return router
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
