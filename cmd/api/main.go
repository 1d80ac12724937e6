package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novamed-health/booking-platform/internal/api/router"
	"github.com/novamed-health/booking-platform/internal/booking"
	"github.com/novamed-health/booking-platform/internal/catalog"
	appconfig "github.com/novamed-health/booking-platform/internal/config"
	"github.com/novamed-health/booking-platform/internal/conversation"
	"github.com/novamed-health/booking-platform/internal/db"
	"github.com/novamed-health/booking-platform/internal/messaging"
	"github.com/novamed-health/booking-platform/internal/messaging/whatsapp"
	"github.com/novamed-health/booking-platform/internal/nlp"
	"github.com/novamed-health/booking-platform/internal/observability/metrics"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	cancel()
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	cat := catalog.Default()
	if cfg.DepartmentsJSON != "" {
		cat, err = catalog.FromJSON(cfg.DepartmentsJSON)
		if err != nil {
			logger.Error("invalid department configuration", "error", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	repo := booking.NewRepository(pool, cfg.ReserveMaxAttempts)
	bookingService := booking.NewService(repo, cat, logger, bookingMetrics)

	waClient, err := whatsapp.New(whatsapp.Config{
		BaseURL:     cfg.WhatsAppBaseURL,
		AccessToken: cfg.WhatsAppToken,
		PhoneID:     cfg.WhatsAppPhoneID,
		MaxRetries:  2,
		Logger:      logger.Logger,
	})
	if err != nil {
		logger.Error("whatsapp client setup failed", "error", err)
		os.Exit(1)
	}

	sessions := conversation.NewSessionStore(redisClient, cfg.SessionIdleTimeout)
	messenger := messaging.NewMessenger(waClient, logger)
	engine := conversation.NewEngine(sessions, bookingService, nlp.NewParser(cat), cat, messenger, logger)

	webhooks := messaging.NewWebhookHandler(messaging.WebhookConfig{
		Dialogue:    engine,
		Dedupe:      messaging.NewDeduper(redisClient, cfg.DedupeWindow),
		VerifyToken: cfg.VerifyToken,
		Logger:      logger,
		Metrics:     bookingMetrics,
	})

	r := router.New(&router.Config{
		Logger:           logger,
		Webhooks:         webhooks,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookRateLimit: cfg.WebhookRateLimit,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
