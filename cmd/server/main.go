package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"etf-go-api/internal/config"
	"etf-go-api/internal/etf"
	"etf-go-api/internal/handlers"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/metrics"
	"etf-go-api/internal/services"
	"etf-go-api/internal/tracing"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "console").Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, logCloser, err := logging.NewWithDir(cfg.LogLevel, cfg.LogFormat, cfg.LogDir)
	if err != nil {
		logging.New("info", "console").Fatal().Err(err).Msg("Failed to open log files")
	}
	defer logCloser.Close()

	tp, err := tracing.Init(cfg.TracingEnabled, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize services
	ctx := context.Background()
	priceSource, priceCloser, err := newPriceSource(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("price_source", cfg.PriceSource).Msg("Failed to initialize price source")
	}

	lo, hi, _ := cfg.WeightBand()
	etfService := services.NewETFService(etf.WeightBand{Min: lo, Max: hi}, priceSource, log)

	// Initialize handlers
	appMetrics := metrics.New("ETF Analytics", version)
	etfHandler := handlers.NewETFHandler(etfService, cfg.DefaultTopHoldingsCount, appMetrics, log)
	healthHandler := handlers.NewHealthHandler(version, map[string]handlers.ReadinessChecker{
		"prices": etfService.CheckPrices,
	})

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "ETF-API",
		AppName:       "ETF Analytics v" + version,
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 30,
		BodyLimit:     cfg.UploadBodyLimitMB * 1024 * 1024,
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(appMetrics.Middleware())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:          100,
		Expiration:   1 * time.Minute,
		LimitReached: handlers.RateLimitReached,
	}))

	// Routes
	app.Get("/test", etfHandler.Ping)
	app.Get("/health", healthHandler.Health)
	app.Get("/health/ready", healthHandler.Ready)
	app.Get("/metrics", appMetrics.Handler())

	api := app.Group("/api/etf")
	api.Post("/upload", etfHandler.Upload)
	api.Post("/admin/refresh", etfHandler.RefreshCache)

	// Graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("environment", cfg.Environment).
		Str("price_source", cfg.PriceSource).
		Str("weight_band", lo.String()+"-"+hi.String()).
		Msg("ETF API started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := priceCloser.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to release price source")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server shutdown complete")
}
