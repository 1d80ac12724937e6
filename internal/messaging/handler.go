package messaging

import (
	"context"
	"io"
	"net/http"

	"github.com/novamed-health/booking-platform/internal/observability/metrics"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

// Dialogue is the conversation surface a webhook delivery is handed to.
// Satisfied by *conversation.Engine.
type Dialogue interface {
	HandleMessage(ctx context.Context, sender, text string) error
}

// WebhookHandler terminates the WhatsApp Cloud API webhook: the GET
// verification handshake and POST message deliveries.
type WebhookHandler struct {
	dialogue    Dialogue
	dedupe      *Deduper
	verifyToken string
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics
}

type WebhookConfig struct {
	Dialogue    Dialogue
	Dedupe      *Deduper
	VerifyToken string
	Logger      *logging.Logger
	Metrics     *metrics.BookingMetrics
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		dialogue:    cfg.Dialogue,
		dedupe:      cfg.Dedupe,
		verifyToken: cfg.VerifyToken,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// Verify answers Meta's subscription handshake: echo hub.challenge when
// the mode and token match, reject otherwise.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token == "" || token != h.verifyToken {
		h.logger.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Receive accepts a webhook delivery. Meta retries non-2xx responses,
// so once the payload is parsed every outcome acknowledges with 200;
// processing failures are logged and counted instead of surfaced.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	in, ok, err := ParseInbound(body)
	if err != nil {
		h.metrics.ObserveInbound("unknown", "malformed")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if !ok {
		// Status-only delivery.
		w.WriteHeader(http.StatusOK)
		return
	}

	seen, err := h.dedupe.Seen(r.Context(), in.MessageID)
	if err != nil {
		h.logger.Error("dedupe check failed", "message_id", in.MessageID, "error", err)
	}
	if seen {
		h.metrics.ObserveInbound(in.Kind, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.dialogue.HandleMessage(r.Context(), in.From, in.Text); err != nil {
		h.metrics.ObserveInbound(in.Kind, "error")
		h.logger.Error("message handling failed", "sender", in.From, "error", err)
	} else {
		h.metrics.ObserveInbound(in.Kind, "ok")
	}
	w.WriteHeader(http.StatusOK)
}
