package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coupon-api/db"
	"coupon-api/internal/auth"
	"coupon-api/internal/config"
	"coupon-api/internal/handler"
	"coupon-api/internal/normalize"
	"coupon-api/internal/notify"
	"coupon-api/internal/repository"
	"coupon-api/internal/service"
	"coupon-api/internal/validator"
	"coupon-api/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.InitSchema {
		if _, err := pool.Exec(ctx, db.Schema); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().Msg("database schema applied")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Coupon Resource API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Capability checks: role-based when API keys are configured,
	// wide open otherwise.
	var authorizer auth.Authorizer = auth.AllowAll{}
	if len(cfg.Auth.APIKeys) > 0 {
		authorizer = auth.NewRoleAuthorizer(cfg.Auth.APIKeys)
	} else {
		log.Warn().Msg("no API keys configured, all requests are authorized")
	}

	// Post-commit event sink
	var sink notify.Sink = notify.LogSink{}
	if cfg.Notify.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.Notify.WebhookURL, time.Duration(cfg.Notify.Timeout)*time.Second)
	}

	// Initialize coupon components (layered architecture)
	couponRepo := repository.NewCouponRepository(pool)
	guard := service.NewCodeGuard(couponRepo)
	normalizer := normalize.New(validate)
	couponService := service.NewCouponService(couponRepo, guard, authorizer, sink, normalizer)
	couponHandler := handler.NewCouponHandler(couponService, validate)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// Coupon routes. Literal segments must be registered before the
	// :id parameter route.
	app.Get("/api/coupons", couponHandler.ListCoupons)
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Get("/api/coupons/count", couponHandler.CountCoupons)
	app.Get("/api/coupons/code/:code", couponHandler.GetCouponByCode)
	app.Get("/api/coupons/:id", couponHandler.GetCoupon)
	app.Put("/api/coupons/:id", couponHandler.EditCoupon)
	app.Delete("/api/coupons/:id", couponHandler.DeleteCoupon)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
