package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datafirstseo/booking-backend/internal/api/router"
	"github.com/datafirstseo/booking-backend/internal/app/bootstrap"
	"github.com/datafirstseo/booking-backend/internal/auth"
	"github.com/datafirstseo/booking-backend/internal/blockedslots"
	"github.com/datafirstseo/booking-backend/internal/bookings"
	"github.com/datafirstseo/booking-backend/internal/cache"
	appconfig "github.com/datafirstseo/booking-backend/internal/config"
	"github.com/datafirstseo/booking-backend/internal/contact"
	"github.com/datafirstseo/booking-backend/internal/ledger"
	"github.com/datafirstseo/booking-backend/internal/notify"
	"github.com/datafirstseo/booking-backend/internal/observability/metrics"
	"github.com/datafirstseo/booking-backend/internal/uploads"
	"github.com/datafirstseo/booking-backend/pkg/logging"
)

func main() {
	// Load .env in local development; ignored when absent
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Response cache (optional)
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	responseCache := cache.New(redisClient, logger, bookingMetrics)

	// Email delivery
	sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	mailer := notify.NewMailer(sender, cfg.PublicBaseURL, cfg.AdminNotifyEmail)
	dispatcher := notify.NewDispatcher(mailer, logger, bookingMetrics)

	// Services
	store := ledger.NewStore(pool)
	bookingService := bookings.NewService(store, dispatcher, logger, bookingMetrics, cfg.MinimumNoticeHours, cfg.UpcomingLimit)
	blockService := blockedslots.NewService(store, logger, bookingMetrics)

	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore, dispatcher, logger, cfg.SessionSecret, cfg.SessionTTL)
	if cfg.AdminEmail != "" && cfg.AdminInitialPassword != "" {
		if err := authService.EnsureAdminUser(ctx, cfg.AdminEmail, cfg.AdminInitialPassword); err != nil {
			logger.Error("failed to seed admin user", "error", err)
			os.Exit(1)
		}
	}

	uploadStore := uploads.NewStore(s3.NewFromConfig(awsCfg), cfg.UploadsBucket, logger)

	// Handlers
	bookingsHandler := bookings.NewHandler(bookingService, responseCache, logger, cfg.AvailabilityTTL, cfg.NextAvailableTTL)
	blockedSlotsHandler := blockedslots.NewHandler(blockService, responseCache, logger)
	authHandler := auth.NewHandler(authService, logger, cfg.CookieDomain, cfg.Env != "development")
	contactHandler := contact.NewHandler(dispatcher, logger)
	uploadsHandler := uploads.NewHandler(uploadStore, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingsHandler:    bookingsHandler,
		BlockedSlots:       blockedSlotsHandler,
		AuthHandler:        authHandler,
		ContactHandler:     contactHandler,
		UploadsHandler:     uploadsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		SessionSecret:      cfg.SessionSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
