package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizadmin/backend/internal/cache"
	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/db"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/metrics"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/routes"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func main() {
	// Initialize logger first
	logger.Initialize()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Cancelled on SIGINT/SIGTERM; stops the cache sweeper and the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DSN(), cfg.GinMode == gin.DebugMode)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(database)

	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	queryCache := newCache(ctx, cfg)
	metrics.Register()

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(metrics.Middleware())
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, storage.NewGormStore(database), queryCache, cfg)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID, "X-Cache"},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting business admin server", map[string]interface{}{
		"port":          cfg.Port,
		"gin_mode":      gin.Mode(),
		"env":           cfg.Env,
		"cache_backend": cfg.Cache.Backend,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	logger.Info("Server exited gracefully", nil)
}

// newCache picks the list-query cache backend. A failed redis dial falls back
// to the in-process cache.
func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	switch cfg.Cache.Backend {
	case "none":
		return cache.Noop{}
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err == nil {
			return cache.NewRedisCache(client, "bizadmin:cache:", cfg.Cache.TTL)
		}
		logger.Warn("Redis unavailable, using in-memory cache", map[string]interface{}{
			"addr":  cfg.Cache.RedisAddr,
			"error": err.Error(),
		})
	}

	memCache := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.SweepInterval)
	go memCache.Run(ctx)
	return memCache
}
