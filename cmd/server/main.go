package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	accountapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/account"
	adminapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/admin"
	mallapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/mall"
	settlementapp "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/auth"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/cache"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/logger"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/persistence"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/scheduler"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/statement"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/storage"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/telemetry"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/handler"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/middleware"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/laixiangran/zique-assistant-platform-sub001/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Zique Shop Assistant API
//	@version		1.0
//	@description	Multi-tenant backend of the shop assistant: accounts, stores, settlements and the admin console

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting shop assistant backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry first so the database plugins can attach to its providers
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.Logs.Attach(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.GormLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite database", zap.Error(err))
		}
	}
	if err := tel.InstrumentDB(db.DB, cfg.Telemetry, cfg.Database.SlowThreshold); err != nil {
		log.Warn("Database instrumentation disabled", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	// Redis is optional; without it caches and the token blacklist stay in process
	var (
		redisClient *redis.Client
		healthRedis redis.UniversalClient
		blacklist   auth.TokenBlacklist
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		healthRedis = redisClient
		blacklist = auth.NewRedisTokenBlacklist(redisClient, cfg.Cache.KeyPrefix)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	cacheMeter := tel.Meter.Meter(telemetry.TracerName)
	queryCache, err := newQueryCache(cfg, cfg.Cache.QueryTTL, "q", redisClient, cacheMeter, log)
	if err != nil {
		log.Fatal("Failed to create query cache", zap.Error(err))
	}
	identityCache, err := newQueryCache(cfg, cfg.Cache.IdentityTTL, "id", redisClient, cacheMeter, log)
	if err != nil {
		log.Fatal("Failed to create identity cache", zap.Error(err))
	}

	// Plugin package storage
	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	subAccountRepo := persistence.NewGormSubAccountRepository(db.DB)
	adminRepo := persistence.NewGormAdminRepository(db.DB)
	levelRepo := persistence.NewGormLevelRepository(db.DB)
	mallRepo := persistence.NewGormMallRepository(db.DB)
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	settlementRepo := persistence.NewGormSettlementRepository(db.DB)
	costPriceRepo := persistence.NewGormCostPriceRepository(db.DB)
	pluginRepo := persistence.NewGormPluginRepository(db.DB)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenTTL := jwtService.GetRefreshTokenExpiration()

	resolver := accountapp.NewIdentityResolver(userRepo, subAccountRepo, adminRepo, identityCache, blacklist, log)
	authService := accountapp.NewAuthService(userRepo, subAccountRepo, adminRepo, levelRepo, jwtService, blacklist, resolver, tel.App, log)
	subAccountService := accountapp.NewSubAccountService(subAccountRepo, userRepo, levelRepo, storeRepo, identityCache, blacklist, tokenTTL, tel.App, log)
	membershipService := accountapp.NewMembershipService(userRepo, subAccountRepo, levelRepo, storeRepo)
	storeService := mallapp.NewStoreService(storeRepo, mallRepo, userRepo, subAccountRepo, levelRepo, queryCache, identityCache, tel.App, log)
	mallService := mallapp.NewMallService(mallRepo)
	settlementService := settlementapp.NewService(settlementRepo, costPriceRepo, storeRepo, queryCache, tel.App, log)
	var statements *statement.ChromeRenderer
	if cfg.Statement.Enabled {
		statements = statement.NewChromeRenderer(cfg.Statement, log.Named("statement"))
		settlementService.SetStatementRenderer(statements)
		log.Info("Settlement statements enabled", zap.Bool("remote_browser", cfg.Statement.ChromeURL != ""))
	}

	userService := adminapp.NewUserService(userRepo, subAccountRepo, storeRepo, levelRepo, blacklist, queryCache, identityCache, tokenTTL, log)
	adminService := adminapp.NewAdminService(adminRepo, log)
	levelService := adminapp.NewLevelService(levelRepo, log)
	adminMallService := adminapp.NewMallService(mallRepo, log)
	pluginService := adminapp.NewPluginService(pluginRepo, objects, cfg.Storage.MaxUploadSize, log)

	created, err := adminService.Bootstrap(ctx, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapPassword)
	if err != nil {
		log.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}
	if created {
		log.Info("Bootstrap admin created", zap.String("username", cfg.Admin.BootstrapUsername))
	}

	// Background jobs
	jobs := scheduler.New(log)
	if cfg.Scheduler.Enabled {
		sweep := scheduler.NewMembershipSweep(userRepo, levelRepo, storeRepo, queryCache, log, cfg.Scheduler.MembershipSweepLookback)
		if err := jobs.Register(sweep, scheduler.Schedule{
			Interval:   cfg.Scheduler.MembershipSweepEvery,
			Timeout:    cfg.Scheduler.MembershipSweepTimeout,
			RunOnStart: true,
		}); err != nil {
			log.Fatal("Failed to register membership sweep", zap.Error(err))
		}
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Scheduler started", zap.Duration("membership_sweep_every", cfg.Scheduler.MembershipSweepEvery))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request ID, recovery, access log, security headers,
	// CORS, body limit, rate limit, tracing, metrics
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	})...)
	engine.Use(middleware.HTTPMetrics(tel.Meter, log))

	// Health check endpoint (outside API versioning)
	systemHandler := handler.NewSystemHandler(db, healthRedis, version)
	engine.GET("/health", systemHandler.Health)

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Plugin packages stored on disk are served by the API itself
	if local, ok := objects.(*storage.LocalObjectStorage); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		engine.Static(cfg.Storage.PublicBaseURL, local.Dir())
	}

	guards := router.Guards{
		Authenticate: middleware.Authenticate(middleware.AuthConfig{
			JWTService: jwtService,
			Resolver:   resolver,
			CookieName: cfg.Cookie.Name,
			Logger:     log,
		}),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		limiters = append(limiters, limiter)
		guards.LoginLimit = middleware.RateLimit(limiter)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, g := range router.APIGroups(router.Handlers{
		Auth:       handler.NewAuthHandler(authService, cfg.Cookie),
		Store:      handler.NewStoreHandler(storeService, mallService),
		Settlement: handler.NewSettlementHandler(settlementService),
		SubAccount: handler.NewSubAccountHandler(subAccountService),
		Membership: handler.NewMembershipHandler(membershipService, pluginService),
		Admin:      handler.NewAdminHandler(userService, adminService),
		Catalog:    handler.NewCatalogHandler(levelService, adminMallService, pluginService),
	}, guards) {
		r.Register(g)
	}
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result *multierror.Error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	for _, l := range limiters {
		l.Stop()
	}
	if statements != nil {
		statements.Close()
	}
	queryCache.Close()
	identityCache.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newQueryCache builds a cache tier, sharing Redis when configured
func newQueryCache(cfg *config.Config, ttl time.Duration, prefix string, client *redis.Client, meter metric.Meter, log *zap.Logger) (*cache.QueryCache, error) {
	opts := []cache.Option{cache.WithLogger(log), cache.WithMeter(meter)}
	if client != nil && cfg.Cache.RedisBacked {
		opts = append(opts, cache.WithRedis(client))
	}
	return cache.NewQueryCache(cache.Config{
		TTL:        ttl,
		MaxEntries: cfg.Cache.MaxEntries,
		KeyPrefix:  cfg.Cache.KeyPrefix + ":" + prefix,
	}, opts...)
}
