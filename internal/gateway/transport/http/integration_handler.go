package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/app"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

// IntegrationHandler exposes the integration lifecycle to the dashboard
// backend. These routes sit behind the deployment's internal network; the
// public surface is the webhook routes only.
type IntegrationHandler struct {
	service *app.IntegrationService
	logger  *slog.Logger
}

func NewIntegrationHandler(service *app.IntegrationService, logger *slog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		service: service,
		logger:  logger.With("component", "integration_handler"),
	}
}

type connectPayload struct {
	AccountID   uuid.UUID          `json:"account_id"`
	Platform    domain.Platform    `json:"platform"`
	Credentials domain.Credentials `json:"credentials"`
}

func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var payload connectPayload
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	integ, err := h.service.Connect(ctx, app.ConnectRequest{
		AccountID:   payload.AccountID,
		Platform:    payload.Platform,
		Credentials: payload.Credentials,
	})
	if errors.Is(err, domain.ErrInvalidCredentials) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to connect integration", "error", err, "platform", payload.Platform)
		http.Error(w, "failed to connect integration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(integ); err != nil {
		logger.WarnContext(ctx, "failed to encode integration response", "error", err)
	}
}

func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	id, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		http.Error(w, "invalid integration id", http.StatusNotFound)
		return
	}

	if err := h.service.Disconnect(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "unknown integration", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "failed to disconnect integration", "error", err, "integration_id", id)
		http.Error(w, "failed to disconnect integration", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
