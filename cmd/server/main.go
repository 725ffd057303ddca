package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bomapp "github.com/erp/bomengine/internal/application/bom"
	inventoryapp "github.com/erp/bomengine/internal/application/inventory"
	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/recipe"
	sharedstrategy "github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/erp/bomengine/internal/infrastructure/cache"
	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/erp/bomengine/internal/infrastructure/event"
	"github.com/erp/bomengine/internal/infrastructure/lock"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/persistence"
	"github.com/erp/bomengine/internal/infrastructure/strategy"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/erp/bomengine/internal/interfaces/http/handler"
	"github.com/erp/bomengine/internal/interfaces/http/middleware"
	"github.com/erp/bomengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The OTLP log bridge needs a logger to report its own setup, so the
	// final logger is built once the provider exists.
	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, lp.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting BOM engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.Enabled {
		tp.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log provider", zap.Error(err))
		}
	}()

	meter := mp.Meter(cfg.Telemetry.ServiceName)
	metrics, err := telemetry.NewBOMMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register BOM metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if stats, err := db.Stats(); err == nil {
			log.Info("Database pool at shutdown",
				zap.Int("open", stats.OpenConnections),
				zap.Int("in_use", stats.InUse),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
			)
		}
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	healthChecks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}

	// Redis is optional. Without it locks, idempotency keys and rate limit
	// counters stay local to this process.
	var redisClient *redis.Client
	var locker lock.Locker
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.WaitTimeout,
			lock.WithRetryInterval(cfg.Lock.RetryEvery),
			lock.WithLogger(log),
		)
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		log.Info("Using Redis for stock locks", zap.String("addr", cfg.Redis.Addr()))
	} else {
		locker = lock.NewLocalLocker(cfg.Lock.WaitTimeout)
		log.Info("Redis not configured, using in-process stock locks")
	}

	var factory *cache.IdempotencyStoreFactory
	if redisClient != nil {
		factory = cache.NewIdempotencyStoreFactory(redisClient, cache.WithLogger(log), cache.WithInMemoryFallback(true))
	} else {
		factory = cache.NewIdempotencyStoreFactory(nil, cache.WithLogger(log))
	}
	idempotency, err := factory.CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log, event.WithDispatchObserver(metrics.ObserveEventDispatch))
	reorderAlerts := inventoryapp.NewReorderAlertHandler(log).WithMetrics(metrics)
	eventBus.Subscribe(reorderAlerts, reorderAlerts.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Repositories
	materialRepo := persistence.NewGormMaterialRepository(db.DB)
	ledgerRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	recipeRepo := persistence.NewGormRecipeRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Domain services
	strategies, err := strategy.NewRegistryWithDefaults(cfg.BOM.DefaultStrategy)
	if err != nil {
		log.Fatal("Failed to build allocation strategy registry", zap.Error(err))
	}
	log.Info("Allocation strategies registered",
		zap.Int("count", strategies.Stats()[sharedstrategy.StrategyTypeAllocation]),
		zap.String("default", cfg.BOM.DefaultStrategy),
	)
	resolver := recipe.NewResolver(recipeRepo, materialRepo)
	calculator := production.NewAvailabilityCalculator(resolver,
		production.WithMaxBulkCheck(cfg.BOM.MaxBulkCheck),
		production.WithBulkConcurrency(cfg.BOM.BulkConcurrency),
	)
	allocator := production.NewAllocator(resolver, materialRepo, strategies,
		production.WithMaxPlanRequests(cfg.BOM.MaxPlanRequests),
		production.WithDefaultStrategy(cfg.BOM.DefaultStrategy),
	)

	// Application services
	materialService := inventoryapp.NewMaterialService(materialRepo, ledgerRepo, scope, cfg.Inventory.MaxBulkCreate, log)
	materialService.SetEventPublisher(eventBus)

	mutationService := inventoryapp.NewStockMutationService(scope, locker, inventoryapp.MutationConfig{
		MaxRetries:     cfg.Inventory.MutationMaxRetries,
		RetryBackoff:   cfg.Inventory.MutationRetryBackoff,
		IdempotencyTTL: cfg.Inventory.IdempotencyTTL,
	}, log)
	mutationService.SetEventPublisher(eventBus)
	mutationService.SetIdempotencyStore(idempotency)
	mutationService.SetMetrics(metrics)

	recipeService := bomapp.NewRecipeService(recipeRepo, scope, log)
	recipeService.SetEventPublisher(eventBus)

	bomService := bomapp.NewBOMService(resolver, calculator, allocator, log)
	bomService.SetMetrics(metrics)

	var writeLimit gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		rl, err := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, redisClient)
		if err != nil {
			log.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		writeLimit = middleware.RateLimit(rl)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		Meter:          meter,
		Profiling:      cfg.Profiling.Enabled,
		CORS:           cors,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		WriteLimit:     writeLimit,
	}, router.Handlers{
		Materials:  handler.NewMaterialHandler(materialService, mutationService).WithHistoryPageLimit(cfg.BOM.MaxHistoryPage),
		Recipes:    handler.NewRecipeHandler(recipeService),
		BOM:        handler.NewBOMHandler(bomService),
		Strategies: handler.NewStrategyHandler(strategies),
		Health:     handler.NewHealthHandler(healthChecks...),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if closer, ok := idempotency.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}

	log.Info("Server exited")
}
