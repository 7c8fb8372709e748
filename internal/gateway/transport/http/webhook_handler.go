package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// telegramSecretHeader carries the secret token registered via setWebhook.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// JobEnqueuer hands an accepted webhook payload to the durable queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job domain.Job) error
}

// WebhookHandler is the thin ingestion edge: it authenticates the call,
// identifies the integration, and enqueues the raw payload. No business
// logic happens here; the platform gets its acknowledgment fast regardless
// of what the pipeline later does with the payload.
type WebhookHandler struct {
	integrations domain.IntegrationRepository
	queue        JobEnqueuer
	logger       *slog.Logger
}

func NewWebhookHandler(integrations domain.IntegrationRepository, queue JobEnqueuer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		integrations: integrations,
		queue:        queue,
		logger:       logger.With("component", "webhook_handler"),
	}
}

// Receive handles POST /webhooks/{integrationID} for both platforms.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	integ, ok := h.loadIntegration(w, r, logger)
	if !ok {
		return
	}
	logger = logger.With("integration_id", integ.ID, "platform", integ.Platform)

	if integ.Platform == domain.PlatformTelegram {
		if !constantTimeEqual(r.Header.Get(telegramSecretHeader), integ.Credentials.WebhookSecret) {
			logger.WarnContext(ctx, "webhook secret mismatch")
			http.Error(w, "invalid webhook secret", http.StatusUnauthorized)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WarnContext(ctx, "failed to read webhook body", "error", err)
		h.acknowledge(w, integ.Platform, http.StatusBadRequest, "error reading request body")
		return
	}

	job := domain.Job{
		IntegrationID: integ.ID,
		Platform:      integ.Platform,
		RawPayload:    payload,
	}
	if err := h.queue.Enqueue(ctx, job); err != nil {
		// Telegram redelivers on a 5xx, which keeps the payload durable
		// even when the queue is down. A WhatsApp retry storm is worse
		// than one lost payload, so it always gets its 200.
		logger.ErrorContext(ctx, "failed to enqueue webhook payload", "error", err)
		h.acknowledge(w, integ.Platform, http.StatusInternalServerError, "failed to queue update")
		return
	}

	logger.InfoContext(ctx, "webhook payload enqueued", "payload_size", len(payload))
	w.WriteHeader(http.StatusOK)
}

// Verify handles GET /webhooks/{integrationID}, the whatsapp-like
// subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	integ, ok := h.loadIntegration(w, r, logger)
	if !ok {
		return
	}

	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || !constantTimeEqual(token, integ.Credentials.VerifyToken) {
		logger.WarnContext(ctx, "webhook verification rejected", "integration_id", integ.ID, "mode", mode)
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	logger.InfoContext(ctx, "webhook verified", "integration_id", integ.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		logger.WarnContext(ctx, "failed to write challenge response", "error", err)
	}
}

func (h *WebhookHandler) loadIntegration(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*domain.Integration, bool) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		logger.WarnContext(ctx, "malformed integration id in webhook URL", "error", err)
		http.Error(w, "invalid integration id", http.StatusNotFound)
		return nil, false
	}

	integ, err := h.integrations.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		logger.WarnContext(ctx, "webhook for unknown integration", "integration_id", id)
		http.Error(w, "unknown integration", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load integration", "error", err, "integration_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return integ, true
}

// acknowledge writes a failure status for platforms that tolerate it, and a
// 200 for platforms that would retry-storm on anything else.
func (h *WebhookHandler) acknowledge(w http.ResponseWriter, platform domain.Platform, failureCode int, message string) {
	if platform == domain.PlatformWhatsApp {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, message, failureCode)
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
