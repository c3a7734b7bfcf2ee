// Package main provides the main entry point for the AutoSEM marketing automation backend
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

	"github.com/amirphl/AutoSEM/app/handlers"
	"github.com/amirphl/AutoSEM/app/middleware"
	"github.com/amirphl/AutoSEM/app/router"
	"github.com/amirphl/AutoSEM/app/scheduler"
	"github.com/amirphl/AutoSEM/app/services"
	businessflow "github.com/amirphl/AutoSEM/business_flow"
	"github.com/amirphl/AutoSEM/config"
	"github.com/amirphl/AutoSEM/models"
	"github.com/amirphl/AutoSEM/platform"
	"github.com/amirphl/AutoSEM/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting AutoSEM application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers before the HTTP server
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.CampaignRecord{},
		&models.Setting{},
		&models.ActivityLog{},
		&models.Product{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// startMetricsServer serves the Prometheus registry on its own listener so
// scrapes never compete with API traffic. The returned function stops it.
func startMetricsServer(cfg config.MetricsConfig) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on :%d%s", cfg.Port, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// resolveMetaAccessToken prefers the token stored by the refresh job over the
// environment, so restarts keep the freshest credential.
func resolveMetaAccessToken(settingRepo repository.SettingRepository, envToken string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stored, err := settingRepo.ByKey(ctx, "meta_access_token")
	if err == nil && stored != nil && stored.Value != "" {
		return stored.Value
	}
	return envToken
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRecordRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	productRepo := repository.NewProductRepository(db)

	// Initialize platform clients
	metaClient := platform.NewMetaClient(platform.MetaConfig{
		AccessToken: resolveMetaAccessToken(settingRepo, cfg.Meta.AccessToken),
		AppSecret:   cfg.Meta.AppSecret,
		AdAccountID: cfg.Meta.AdAccountID,
	})
	tiktokClient := platform.NewTikTokClient(platform.TikTokConfig{
		AccessToken:  cfg.TikTok.AccessToken,
		AdvertiserID: cfg.TikTok.AdvertiserID,
	})
	googleClient := platform.NewGoogleAdsClient(platform.GoogleAdsConfig{
		DeveloperToken: cfg.GoogleAds.DeveloperToken,
		ClientID:       cfg.GoogleAds.ClientID,
		ClientSecret:   cfg.GoogleAds.ClientSecret,
		RefreshToken:   cfg.GoogleAds.RefreshToken,
		CustomerID:     cfg.GoogleAds.CustomerID,
	})
	shopifyClient := platform.NewShopifyClient(platform.ShopifyConfig{
		ShopDomain:  cfg.Shopify.ShopDomain,
		AccessToken: cfg.Shopify.AccessToken,
	})
	klaviyoClient := platform.NewKlaviyoClient(platform.KlaviyoConfig{
		APIKey: cfg.Klaviyo.APIKey,
	})

	clients := businessflow.ClientRegistry{
		models.PlatformMeta:   metaClient,
		models.PlatformTikTok: tiktokClient,
		models.PlatformGoogle: googleClient,
	}

	// Initialize scheduler first so everything shares its rotated logger
	sched := scheduler.NewAutomationScheduler(activityRepo, cfg.Logging.Dir)
	appLogger := sched.Logger()

	// Initialize flows
	settingsFlow := businessflow.NewSettingsFlow(settingRepo, activityRepo, rc, appLogger)
	executor := businessflow.NewActionExecutor(clients, campaignRepo, appLogger)
	optimizerFlow := businessflow.NewOptimizerFlow(campaignRepo, activityRepo, settingsFlow, executor, appLogger)
	syncFlow := businessflow.NewPerformanceSyncFlow(clients, campaignRepo, activityRepo, settingsFlow, appLogger)
	catalogFlow := businessflow.NewShopifyCatalogFlow(shopifyClient, productRepo, appLogger)
	snapshotFlow := businessflow.NewSnapshotFlow(campaignRepo, activityRepo, shopifyClient, klaviyoClient, cfg.Admin.NotifyEmail, appLogger)
	tokenFlow := businessflow.NewTokenFlow(metaClient, cfg.Meta.AppID, settingRepo, activityRepo, appLogger)
	healthFlow := businessflow.NewHealthFlow(db, rc, clients, activityRepo, sched.Status, appLogger)
	reportFlow := businessflow.NewReportFlow(campaignRepo, activityRepo, appLogger)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Register background jobs
	sched.AddJob("performance_sync", cfg.Scheduler.SyncInterval, cfg.Scheduler.RunOnStart, func(ctx context.Context) error {
		_, err := syncFlow.SyncAll(ctx)
		return err
	}, syncFlow.NoteScheduledOutcome)
	sched.AddJob("optimize", cfg.Scheduler.OptimizeInterval, false, func(ctx context.Context) error {
		_, err := optimizerFlow.OptimizeAll(ctx)
		return err
	})
	sched.AddJob("catalog_sync", cfg.Scheduler.CatalogSyncInterval, false, func(ctx context.Context) error {
		_, err := catalogFlow.SyncCatalog(ctx)
		return err
	})
	sched.AddJob("token_refresh", cfg.Scheduler.TokenRefreshInterval, false, func(ctx context.Context) error {
		return tokenFlow.RefreshMetaToken(ctx)
	})
	sched.AddJob("heartbeat", cfg.Scheduler.HeartbeatInterval, true, func(ctx context.Context) error {
		status := healthFlow.Check(ctx)
		if !status.Healthy {
			return fmt.Errorf("health check failed: %v", status.Checks)
		}
		return nil
	})
	sched.AddDailyJob("daily_snapshot", cfg.Scheduler.SnapshotHourUTC, cfg.Scheduler.SnapshotMinuteUTC, func(ctx context.Context) error {
		_, err := snapshotFlow.TakeDailySnapshot(ctx)
		return err
	})

	if cfg.Scheduler.Enabled {
		sched.Start(context.Background())
		stopFuncs = append(stopFuncs, sched.Stop)
	}

	if cfg.Metrics.Enabled {
		stopFuncs = append(stopFuncs, startMetricsServer(cfg.Metrics))
	}

	// Initialize handlers
	authAdminHandler := handlers.NewAuthAdminHandler(tokenService, cfg.Admin.Username, cfg.Admin.PasswordHash)
	automationHandler := handlers.NewAutomationHandler(optimizerFlow, syncFlow, sched)
	settingsHandler := handlers.NewSettingsHandler(settingsFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignRepo)
	productHandler := handlers.NewProductHandler(productRepo)
	activityHandler := handlers.NewActivityHandler(activityRepo)
	reportHandler := handlers.NewReportHandler(reportFlow)
	healthHandler := handlers.NewHealthHandler(healthFlow, "1.0.0")

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	appRouter := router.NewFiberRouter(
		router.Config{
			AllowedOrigins:  cfg.Security.AllowedOrigins,
			GlobalRateLimit: cfg.Security.GlobalRateLimit,
			AuthRateLimit:   cfg.Security.AuthRateLimit,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			BodyLimit:       cfg.Server.BodyLimit,
		},
		authAdminHandler,
		automationHandler,
		settingsHandler,
		campaignHandler,
		productHandler,
		activityHandler,
		reportHandler,
		healthHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
