package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/andriwardana/storefront/backend/internal/auth"
	"github.com/andriwardana/storefront/backend/internal/cart"
	"github.com/andriwardana/storefront/backend/internal/catalog"
	"github.com/andriwardana/storefront/backend/internal/config"
	"github.com/andriwardana/storefront/backend/internal/health"
	"github.com/andriwardana/storefront/backend/internal/logger"
	"github.com/andriwardana/storefront/backend/internal/metrics"
	appmw "github.com/andriwardana/storefront/backend/internal/middleware"
	"github.com/andriwardana/storefront/backend/internal/order"
	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/sanitizer"
	"github.com/andriwardana/storefront/backend/internal/secevent"
	"github.com/andriwardana/storefront/backend/internal/storage"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	// .env is optional, real deployments use the environment
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	// Database
	dbPool, err := setupDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	// Second handle for the sqlx-based catalog repository
	sqlxDB, err := sqlx.Connect("pgx", cfg.Database.URL())
	if err != nil {
		log.Error("Failed to open sqlx connection", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlxDB.Close()

	// Redis backs the catalog cache only, so a missing instance degrades
	// rather than aborts
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unreachable, catalog cache disabled", slog.String("error", err.Error()))
		redisClient = nil
	}

	// Object storage for product images
	var imageStore *storage.ImageStore
	if cfg.Storage.AccessKeyID != "" {
		imageStore, err = storage.NewImageStore(&cfg.Storage)
		if err != nil {
			log.Error("Failed to initialize image store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("Object storage ready",
			slog.String("bucket", imageStore.Bucket()),
			slog.Duration("presign_expiry", imageStore.PresignedURLExpiry()))
	} else {
		log.Warn("Object storage not configured, product image URLs disabled")
	}

	// Cached product views embed pre-signed image URLs, so the cache TTL
	// must not outlive the URL signatures
	catalogCacheTTL := cfg.Redis.CacheTTL
	if imageStore != nil {
		catalogCacheTTL = catalog.ClampCacheTTL(catalogCacheTTL, imageStore.PresignedURLExpiry())
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	resetRepo := repository.NewResetTokenRepository(dbPool)
	eventRepo := repository.NewEventRepository(dbPool)
	catalogRepo := repository.NewCatalogRepo(sqlxDB)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	eventRecorder := secevent.NewRecorder(eventRepo, log)
	authService := auth.NewService(userRepo, sessionRepo, resetRepo, eventRecorder, eventRepo, log)
	catalogService := catalog.NewService(catalogRepo, redisClient, catalogCacheTTL, sanitizer.NewHTMLSanitizer(), imagePresigner(imageStore), log)
	cartService := cart.NewService(cartRepo, catalogRepo, log)

	// Handlers
	authHandler := auth.NewHandler(authService, log)
	catalogHandler := catalog.NewHandler(catalogService, log)
	cartHandler := cart.NewHandler(cartService, log)
	orderHandler := order.NewHandler(orderRepo, log)
	healthHandler := health.NewHandler(health.Config{
		DBPool:      dbPool,
		RedisClient: redisClient,
		Version:     version,
	})

	// Middleware
	authMiddleware := appmw.NewAuthMiddleware(authService)
	resetLimiter := appmw.NewResetRequestRateLimiter()

	// Pool stats feed the Prometheus gauges
	dbStats := metrics.NewDBStatsCollector(dbPool, log)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appmw.StructuredLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler, resetLimiter.Limit)
		catalog.RegisterRoutes(r, catalogHandler)
		cart.RegisterRoutes(r, cartHandler, authMiddleware.Authenticate)
		order.RegisterRoutes(r, orderHandler, authMiddleware.Authenticate)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting server", slog.String("addr", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("Server exited")
}

// imagePresigner keeps the catalog service's presigner nil when storage
// is not configured. A typed nil pointer inside the interface would
// defeat the service's nil check.
func imagePresigner(store *storage.ImageStore) catalog.ImagePresigner {
	if store == nil {
		return nil
	}
	return store
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.DBName))
	return pool, nil
}
