package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/voicebridge/data-connector/internal/auth"
	"github.com/voicebridge/data-connector/internal/cache"
	"github.com/voicebridge/data-connector/internal/config"
	"github.com/voicebridge/data-connector/internal/connectors"
	"github.com/voicebridge/data-connector/internal/data"
	"github.com/voicebridge/data-connector/internal/db"
	"github.com/voicebridge/data-connector/internal/export"
	"github.com/voicebridge/data-connector/internal/handlers"
	"github.com/voicebridge/data-connector/internal/keys"
	"github.com/voicebridge/data-connector/internal/logger"
	"github.com/voicebridge/data-connector/internal/ratelimit"
	"github.com/voicebridge/data-connector/internal/voice"
	"github.com/voicebridge/data-connector/internal/webhooks"
)

// Mock dataset sizes for the bundled connectors.
const (
	customerCount = 50
	ticketCount   = 80
)

func main() {
	cfg := config.Load()
	flag.Parse()

	if err := cfg.Finalize(flag.CommandLine); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.New(cfg.DebugMode)
	defer func() {
		_ = appLogger.Sync() // Ignore sync errors on close, as per zap documentation
	}()

	gin.SetMode(gin.ReleaseMode)
	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.Default()
	if cfg.DebugMode {
		router.Use(cors.New(cors.Config{
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Type", "Content-Disposition"},
			AllowOriginFunc: func(origin string) bool {
				return true
			},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	ctx, cancel := context.WithCancel(context.Background())

	database, err := openDatabase(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open storage",
			"error", err,
		)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close storage",
				"error", err,
			)
		}
	}()

	keyStore, err := keys.NewSQLStore(ctx, database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize credential store",
			"error", err,
		)
	}
	keyService := keys.NewService(keyStore, appLogger)

	registry, err := webhooks.NewSQLRegistry(ctx, database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize webhook registry",
			"error", err,
		)
	}

	dispatcher := webhooks.NewDispatcher(registry, appLogger,
		webhooks.WithWorkers(cfg.Webhooks.MaxConcurrent),
		webhooks.WithQueueSize(cfg.Webhooks.QueueSize),
		webhooks.WithTimeout(time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
		webhooks.WithMaxRetries(cfg.Webhooks.MaxRetries),
	)
	if cfg.Webhooks.Enabled {
		dispatcher.Start(ctx)
	}

	limiter := ratelimit.New(
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.PeriodSeconds)*time.Second,
		ratelimit.WithIdleWindows(cfg.RateLimit.IdleWindows),
	)
	if cfg.RateLimit.Enabled {
		limiter.StartJanitor(ctx)
	}

	responseCache := initCache(ctx, cfg, appLogger)
	if responseCache != nil {
		defer func() {
			if err := responseCache.Close(); err != nil {
				appLogger.Error("Failed to close cache",
					"error", err,
				)
			}
		}()
	}

	sources := buildConnectors(cfg)

	registerHandlers(router, cfg, keyService, limiter, registry, dispatcher, responseCache, sources, appLogger)

	srv, err := newServer(cfg, router)
	if err != nil {
		appLogger.Fatal("Failed to configure server",
			"error", err,
		)
	}

	go func() {
		appLogger.Info("Server starting",
			"port", cfg.Port,
			"debug_mode", cfg.DebugMode,
			"tls", cfg.TLS.Enabled(),
		)
		if err := listenAndServe(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed to start",
				"error", err,
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received, shutting down server...")

	cancel()
	dispatcher.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown",
			"error", err,
		)
	}

	appLogger.Info("Server exited gracefully")
}

// openDatabase opens the SQL database backing the durable stores.
//
// Storage modes:
//   - in-memory (default): Ephemeral storage, data lost on restart
//   - disk: Persistent local storage using a file (single replica only)
//   - external: External database (PostgreSQL), supports multiple replicas
func openDatabase(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*db.DB, error) {
	switch cfg.StorageMode {
	case config.StorageModeInMemory, "":
		appLogger.Info("Using in-memory storage (data will be lost on restart). " +
			"For persistent storage, use --storage=disk or --storage=external")
		return db.OpenSQLite(ctx, db.Memory)

	case config.StorageModeDisk:
		dataPath := strings.TrimSpace(cfg.DataPath)
		if dataPath == "" {
			dataPath = config.DefaultDataPath
		}
		appLogger.Info("Using persistent disk storage", "path", dataPath)
		return db.OpenSQLite(ctx, dataPath)

	case config.StorageModeExternal:
		dbURL := strings.TrimSpace(cfg.DBConnectionURL)
		if dbURL == "" {
			return nil, errors.New("--db-connection-url is required when using --storage=external")
		}
		appLogger.Info("Connecting to external database...")
		return db.OpenPostgres(ctx, dbURL)

	default:
		return nil, fmt.Errorf("unknown storage mode: %q (valid modes: in-memory, disk, external)", cfg.StorageMode)
	}
}

// initCache builds the response cache, preferring Redis and falling back to
// the in-process cache when Redis is unconfigured or unreachable. Returns nil
// when caching is disabled.
func initCache(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}

	if cfg.Cache.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err == nil {
			appLogger.Info("Response cache using redis")
			return r
		}
		appLogger.Warn("Redis unavailable, falling back to in-memory cache",
			"error", err,
		)
	}

	m := cache.NewMemory()
	m.StartJanitor(ctx, time.Minute)
	appLogger.Info("Response cache using in-memory backend")
	return m
}

func buildConnectors(cfg *config.Config) *connectors.Set {
	seed := time.Now().UnixNano()

	var list []connectors.Connector
	if cfg.Connectors.CRMEnabled {
		list = append(list, connectors.NewCRM(customerCount, seed))
	}
	if cfg.Connectors.SupportEnabled {
		list = append(list, connectors.NewSupport(ticketCount, seed))
	}
	if cfg.Connectors.AnalyticsEnabled {
		list = append(list, connectors.NewAnalytics(seed))
	}
	return connectors.NewSet(list...)
}

func registerHandlers(
	router *gin.Engine,
	cfg *config.Config,
	keyService *keys.Service,
	limiter *ratelimit.Limiter,
	registry webhooks.Registry,
	dispatcher *webhooks.Dispatcher,
	responseCache cache.Cache,
	sources *connectors.Set,
	appLogger *logger.Logger,
) {
	health := handlers.NewHealthHandler(cfg.Name, map[string]bool{
		"auth":       cfg.Auth.Enabled,
		"rate_limit": cfg.RateLimit.Enabled,
		"webhooks":   cfg.Webhooks.Enabled,
		"cache":      cfg.Cache.Enabled,
		"export":     cfg.Export.Enabled,
		"voice":      cfg.Voice.Enabled,
	})
	router.GET("/", health.Root)
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)

	// Typed nil must not leak into the emitter interfaces.
	var (
		dataEmitter   data.Emitter
		exportEmitter export.Emitter
		limitEmitter  ratelimit.Emitter
	)
	if cfg.Webhooks.Enabled {
		dataEmitter = dispatcher
		exportEmitter = dispatcher
		limitEmitter = dispatcher
	}

	if cfg.Auth.Enabled {
		router.Use(auth.Middleware(keyService, appLogger))
	}
	if cfg.RateLimit.Enabled {
		limit := ratelimit.Middleware(limiter, limitEmitter, appLogger)
		router.Use(func(c *gin.Context) {
			if auth.IsOpenRoute(c.Request.URL.Path) {
				c.Next()
				return
			}
			limit(c)
		})
	}

	keyHandler := keys.NewHandler(keyService, limiter, appLogger)
	authRoutes := router.Group("/api/auth")
	authRoutes.POST("/generate-key", keyHandler.GenerateKey)
	authRoutes.GET("/validate", keyHandler.Validate)
	authRoutes.GET("/keys", keyHandler.ListKeys)
	authRoutes.POST("/revoke/:key", keyHandler.RevokeKey)

	var dataOpts []data.HandlerOption
	if responseCache != nil {
		dataOpts = append(dataOpts,
			data.WithCache(responseCache, time.Duration(cfg.Cache.TTLSeconds)*time.Second))
	}
	if cfg.Voice.Enabled {
		dataOpts = append(dataOpts, data.WithVoice(voice.Options{
			MaxResults:       cfg.Voice.MaxResults,
			SummaryThreshold: cfg.Voice.SummaryThreshold,
		}))
	}
	dataHandler := data.NewHandler(sources, dataEmitter, appLogger, dataOpts...)
	dataRoutes := router.Group("/api/data")
	dataRoutes.GET("/customers", dataHandler.Customers)
	dataRoutes.GET("/support-tickets", dataHandler.Tickets)
	dataRoutes.GET("/analytics", dataHandler.Analytics)
	dataRoutes.POST("/refresh", dataHandler.Refresh)

	if cfg.Export.Enabled {
		exportHandler := export.NewHandler(sources, exportEmitter, cfg.Export.MaxRecords, appLogger)
		router.POST("/api/export/:dataset", exportHandler.Export)
	}

	if cfg.Webhooks.Enabled {
		webhookHandler := webhooks.NewHandler(registry, dispatcher, appLogger)
		router.POST("/api/webhooks/register", webhookHandler.Register)
		router.GET("/api/webhooks", webhookHandler.List)
		router.DELETE("/api/webhooks/:id", webhookHandler.Unregister)
		router.POST("/api/webhooks/test", webhookHandler.Test)
	}

	if responseCache != nil {
		cacheHandler := cache.NewHandler(responseCache, appLogger)
		cacheRoutes := router.Group("/api/cache")
		cacheRoutes.GET("/status", cacheHandler.Status)
		cacheRoutes.GET("/stats", cacheHandler.GetStats)
		cacheRoutes.DELETE("/clear", cacheHandler.Clear)
	}
}
