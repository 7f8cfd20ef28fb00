package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storelink/backend/internal/application/carrier"
	"github.com/storelink/backend/internal/application/ingest"
	"github.com/storelink/backend/internal/application/rates"
	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
	"github.com/storelink/backend/internal/infrastructure/cache"
	"github.com/storelink/backend/internal/infrastructure/config"
	"github.com/storelink/backend/internal/infrastructure/ecommerce"
	"github.com/storelink/backend/internal/infrastructure/logger"
	"github.com/storelink/backend/internal/infrastructure/persistence"
	shippinginfra "github.com/storelink/backend/internal/infrastructure/shipping"
	"github.com/storelink/backend/internal/interfaces/http/handler"
	"github.com/storelink/backend/internal/interfaces/http/middleware"
	"github.com/storelink/backend/internal/interfaces/http/router"
)

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

	log.Info("Starting StoreLink Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	gormLogLevel := gormlogger.Silent
	if cfg.App.Env != "production" {
		gormLogLevel = gormlogger.Warn
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	connectionRepo := persistence.NewGormShopConnectionRepository(db.DB)
	catalogResolver := persistence.NewGormCatalogResolver(db.DB)

	// Webhook delivery dedup store (optional)
	var dedupStore shared.IdempotencyStore
	if cfg.Webhook.DedupEnabled {
		if cfg.Redis.Enabled {
			factory := cache.NewDeliveryStoreFactory(cfg.Redis, cache.WithLogger(log))
			dedupStore, err = factory.CreateStore()
			if err != nil {
				log.Fatal("Failed to create delivery dedup store", zap.Error(err))
			}
		} else {
			dedupStore = cache.NewInMemoryDeliveryStore()
			log.Info("using in-memory webhook delivery store")
		}
	}

	// Upstream commerce platform client
	storefrontClient, err := ecommerce.NewShopifyAdapter(&ecommerce.ShopifyConfig{
		Scheme:           cfg.Storefront.Scheme,
		APIVersion:       cfg.Storefront.APIVersion,
		Timeout:          cfg.Storefront.Timeout,
		RetryMaxAttempts: cfg.Storefront.RetryMaxAttempts,
		RetryBaseDelay:   cfg.Storefront.RetryBaseDelay,
	}, log)
	if err != nil {
		log.Fatal("Failed to create storefront client", zap.Error(err))
	}

	// Shipping rate engine client
	rateEngine, err := shippinginfra.NewHTTPEngine(&shippinginfra.EngineConfig{
		BaseURL: cfg.Shipping.EngineURL,
		Timeout: cfg.Shipping.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create rate engine client", zap.Error(err))
	}

	// Initialize application services
	normalizer := ingest.NewNormalizer(connectionRepo, catalogResolver, log)
	fulfillmentTrigger := ingest.NewFulfillmentTrigger(storefrontClient, log)
	ingestService := ingest.NewService(ingest.ServiceConfig{
		Repo:           orderRepo,
		Normalizer:     normalizer,
		Trigger:        fulfillmentTrigger,
		Connections:    connectionRepo,
		Dedup:          dedupStore,
		Logger:         log,
		FulfillTimeout: cfg.Storefront.FulfillTimeout,
	})
	rateService := rates.NewService(rateEngine, cfg.Shipping.MinDeliveryDays, cfg.Shipping.MaxDeliveryDays, log)
	reconciler := carrier.NewReconciler(storefrontClient, cfg.Carrier.ServiceName, cfg.Carrier.CallbackURL, log)

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(ingestService, cfg.Webhook, log)
	ratesHandler := handler.NewRatesHandler(rateService, log)
	carrierAdminHandler := handler.NewCarrierAdminHandler(reconciler, connectionRepo, log)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Report binding failures using JSON field names
	middleware.SetupValidator()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Probe and legacy endpoints live outside API versioning
	systemHandler.RegisterLegacyRoutes(engine)
	webhookHandler.RegisterLegacyRoutes(engine)

	// Versioned API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(webhookHandler).
		Register(ratesHandler).
		Register(carrierAdminHandler)
	r.Setup()

	// Reconcile carrier-service registrations for all connected shops in the
	// background so a slow or unreachable platform never delays startup.
	if cfg.Carrier.ReconcileOnStartup {
		go reconcileAllShops(connectionRepo, reconciler, log)
	}

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight background fulfillment calls finish before exiting
	ingestService.Drain()

	log.Info("Server exited gracefully")
}

// reconcileAllShops runs one reconcile pass over every active shop
// connection. Failures are logged per shop and never abort the sweep.
func reconcileAllShops(connections storefront.ConnectionProvider, reconciler *carrier.Reconciler, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conns, err := connections.ListActive(ctx)
	if err != nil {
		log.Error("Startup reconcile sweep failed to list shop connections", zap.Error(err))
		return
	}

	failed := 0
	for i := range conns {
		conn := &conns[i]
		report, err := reconciler.Reconcile(ctx, conn)
		if err != nil {
			failed++
			log.Warn("Startup reconcile failed for shop",
				zap.String("shop_domain", conn.ShopDomain),
				zap.Error(err))
			continue
		}
		log.Info("Startup reconcile completed for shop",
			zap.String("shop_domain", conn.ShopDomain),
			zap.String("initial_state", string(report.Initial)),
			zap.String("final_state", string(report.Final)))
	}

	log.Info("Startup reconcile sweep finished",
		zap.Int("shops", len(conns)),
		zap.Int("failed", failed))
}
