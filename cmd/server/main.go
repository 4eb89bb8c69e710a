// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/keshsri/tinylinker/internal/attributes"
	"github.com/keshsri/tinylinker/internal/cache"
	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/geo"
	"github.com/keshsri/tinylinker/internal/handler"
	"github.com/keshsri/tinylinker/internal/repository"
	"github.com/keshsri/tinylinker/internal/repository/memory"
	"github.com/keshsri/tinylinker/internal/repository/postgres"
	redisstore "github.com/keshsri/tinylinker/internal/repository/redis"
	"github.com/keshsri/tinylinker/internal/service"
	customLogger "github.com/keshsri/tinylinker/pkg/logger"
)

func main() {
	// Simple health check for Docker - just make HTTP request to existing server
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8081"
		}
		resp, err := http.Get("http://localhost:" + port + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load environment variables from .env file (development only)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := customLogger.NewLogger(customLogger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
	})
	defer appLogger.Sync()
	appLogger.Info("Starting TinyLinker", "environment", cfg.Environment, "backend", cfg.StoreBackend)

	ctx := context.Background()

	var redisClient *goredis.Client
	if cfg.StoreBackend == config.BackendRedis || cfg.CacheEnabled {
		redisClient, err = redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			if cfg.StoreBackend == config.BackendRedis {
				appLogger.Fatal("Failed to connect to Redis store", "error", err)
			}
			appLogger.Warn("Failed to initialize Redis cache, continuing without cache", "error", err)
		}
	}

	store, err := openStore(ctx, cfg, redisClient, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize store", "error", err)
	}

	// The redis backend already serves reads from memory
	var linkCache cache.Cache
	if cfg.CacheEnabled && redisClient != nil && cfg.StoreBackend != config.BackendRedis {
		linkCache = cache.NewRedisCache(redisClient)
	}

	geoLogger := appLogger.WithFields(map[string]interface{}{"component": "geo"})
	geoProvider, closeGeo := openGeoProvider(cfg, geoLogger)
	resolver := geo.NewResolver(geoProvider, cfg.GeoTimeout, geoLogger)

	analyticsService := service.NewAnalyticsService(
		store.Clicks,
		store.Links,
		resolver,
		attributes.NewIPHasher(cfg.IPSaltSecret),
		cfg,
		appLogger.WithFields(map[string]interface{}{"component": "analytics"}),
	)
	linkService := service.NewLinkService(store.Links, analyticsService, linkCache, cfg,
		appLogger.WithFields(map[string]interface{}{"component": "links"}))

	httpLogger := appLogger.WithFields(map[string]interface{}{"component": "http"})
	linkHandler := handler.NewLinkHandler(linkService, analyticsService, httpLogger)
	router := handler.NewRouter(linkHandler, cfg, httpLogger)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		appLogger.Error("Error closing store", "error", err)
	}
	if redisClient != nil && cfg.StoreBackend != config.BackendRedis {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("Error closing Redis connection", "error", err)
		}
	}
	closeGeo()

	appLogger.Info("Server exited successfully")
}

// openStore builds the repositories for the configured backend
func openStore(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, log *customLogger.Logger) (*repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres, config.BackendSQLite:
		db, err := postgres.Open(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case config.BackendRedis:
		return redisstore.NewStore(redisClient), nil
	case config.BackendMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// openGeoProvider prefers a local MaxMind database over the HTTP API.
// A nil provider makes every lookup Unknown.
func openGeoProvider(cfg *config.Config, log *customLogger.Logger) (geo.Provider, func()) {
	if cfg.GeoIPDBPath != "" {
		provider, err := geo.OpenMaxMind(cfg.GeoIPDBPath)
		if err == nil {
			log.Info("Geolocation via MaxMind database", "path", cfg.GeoIPDBPath)
			return provider, func() {
				if err := provider.Close(); err != nil {
					log.Warn("Error closing geoip database", "error", err)
				}
			}
		}
		log.Warn("Failed to open geoip database, falling back to HTTP lookups", "error", err)
	}

	if cfg.GeoAPIURL != "" {
		log.Info("Geolocation via HTTP API", "url", cfg.GeoAPIURL, "per_minute", cfg.GeoRateLimit)
		provider := geo.NewIPAPIProvider(cfg.GeoAPIURL, &http.Client{Timeout: cfg.GeoTimeout}).
			WithRateLimit(cfg.GeoRateLimit)
		return provider, func() {}
	}

	log.Warn("Geolocation disabled, clicks will be recorded as Unknown")
	return nil, func() {}
}
