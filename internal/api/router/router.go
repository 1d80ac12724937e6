package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	httpmiddleware "github.com/novamed-health/booking-platform/internal/http/middleware"
	"github.com/novamed-health/booking-platform/internal/messaging"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhooks       *messaging.WebhookHandler
	MetricsHandler http.Handler

	// WebhookRateLimit caps webhook deliveries per IP per minute.
	// Zero disables the limiter.
	WebhookRateLimit int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(hooks chi.Router) {
		if cfg.WebhookRateLimit > 0 {
			hooks.Use(httprate.LimitByIP(cfg.WebhookRateLimit, time.Minute))
		}
		hooks.Get("/webhook", cfg.Webhooks.Verify)
		hooks.Post("/webhook", cfg.Webhooks.Receive)
	})

	return r
}
