package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tajious/ejare/internal/api/handlers"
	"github.com/tajious/ejare/internal/api/router"
	"github.com/tajious/ejare/internal/audit"
	"github.com/tajious/ejare/internal/auth"
	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/contract"
	"github.com/tajious/ejare/internal/kv"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/metrics"
	"github.com/tajious/ejare/internal/middleware"
	"github.com/tajious/ejare/internal/notify"
	"github.com/tajious/ejare/internal/report"
	"github.com/tajious/ejare/internal/storage"
)

// Signature and ID image payloads arrive base64 encoded inside JSON.
const bodyLimit = 12 << 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ejare: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.New(logger.Options{
		ServiceName: "ejare",
		Level:       logger.ParseLevel(cfg.Server.LogLevel),
		Format:      cfg.Server.LogFormat,
		WarnStack:   !cfg.Server.IsProduction(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.New(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	var cache kv.Store = kv.NewMemoryStore()
	if cfg.Redis.URL != "" {
		redisStore, err := kv.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("initializing redis: %w", err)
		}
		defer redisStore.Close()
		cache = redisStore
	} else {
		log.Warn(ctx, "REDIS_URL not set; rate limits, revocations and cache are process-local")
	}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	rec := audit.NewRecorder(store, log)

	// Core services
	settings := notify.NewSettings(store, cfg.Notify)
	dispatcher := notify.NewDispatcher(settings, m, log)
	contracts := contract.NewService(contract.Options{
		Store:    store,
		Cache:    cache,
		Notifier: dispatcher,
		Audit:    rec,
		Metrics:  m,
		Logger:   log,
		Config:   cfg.Contract,
	})
	authSvc := auth.NewService(auth.Options{
		Users:     store,
		Contracts: store,
		Store:     cache,
		JWT:       cfg.JWT,
		Contract:  cfg.Contract,
		Audit:     rec,
		Metrics:   m,
		Logger:    log,
	})

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		created, err := authSvc.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
		if created {
			log.Info(log.WithField(ctx, "username", cfg.Admin.Username), "admin account created")
		}
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Ejare",
		BodyLimit:             bodyLimit,
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.Server.IsProduction(),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestContext(log))
	app.Use(middleware.AccessLog(log, m))
	app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + middleware.HeaderRequestID,
		ExposeHeaders: middleware.HeaderRequestID,
	}))

	router.NewRouter(app, router.Options{
		AuthHandler:     handlers.NewAuthHandler(authSvc),
		ContractHandler: handlers.NewContractHandler(contracts),
		ReportHandler:   handlers.NewReportHandler(report.NewService(store), report.NewLedger(store, store, rec)),
		SettingsHandler: handlers.NewSettingsHandler(settings, dispatcher, rec),
		AuditHandler:    handlers.NewAuditHandler(rec),
		HealthHandler:   handlers.NewHealthHandler(store, cache, settings),
		AuthMiddleware:  middleware.NewAuthMiddleware(authSvc, log),
		RateLimiter:     middleware.NewRateLimiter(cache, cfg.Server.RateLimit, log),
		Gatherer:        reg,
	}).SetupRoutes()

	// Start server
	errCh := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "port", cfg.Server.Port), "server starting")
		errCh <- app.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
