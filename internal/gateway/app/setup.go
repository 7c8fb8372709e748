package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/adapters/chatplatform"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

// ConnectRequest is the dashboard's contract for creating an integration.
type ConnectRequest struct {
	AccountID   uuid.UUID          `validate:"required"`
	Platform    domain.Platform    `validate:"required,oneof=telegram whatsapp"`
	Credentials domain.Credentials `validate:"required"`
}

// IntegrationService owns the integration lifecycle: live credential
// validation and webhook registration on connect, best-effort platform
// teardown on disconnect.
type IntegrationService struct {
	integrations  domain.IntegrationRepository
	adapters      *chatplatform.Registry
	publicBaseURL string
	validate      *validator.Validate
	logger        *slog.Logger
}

func NewIntegrationService(integrations domain.IntegrationRepository, adapters *chatplatform.Registry, publicBaseURL string, logger *slog.Logger) *IntegrationService {
	return &IntegrationService{
		integrations:  integrations,
		adapters:      adapters,
		publicBaseURL: publicBaseURL,
		validate:      validator.New(),
		logger:        logger.With("component", "integration_service"),
	}
}

// Connect validates the credentials against the live platform, registers the
// webhook where the platform requires it, and persists the integration. No
// webhook traffic is accepted for an integration before this succeeds.
func (s *IntegrationService) Connect(ctx context.Context, req ConnectRequest) (*domain.Integration, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, fmt.Errorf("validating connect request: %w", err)
	}

	adapter, err := s.adapters.For(req.Platform)
	if err != nil {
		return nil, err
	}

	result, err := adapter.ValidateCredentials(ctx, req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("validating %s credentials: %w", req.Platform, err)
	}
	if !result.Valid {
		s.logger.InfoContext(ctx, "platform rejected credentials",
			"platform", req.Platform, "account_id", req.AccountID, "reason", result.Reason)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, result.Reason)
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	integ := &domain.Integration{
		ID:          uuid.New(),
		AccountID:   req.AccountID,
		Platform:    req.Platform,
		Status:      domain.IntegrationStatusConnected,
		Credentials: req.Credentials,
		ExternalID:  result.Identity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	integ.Credentials.WebhookSecret = secret

	if registrar, ok := adapter.(chatplatform.WebhookRegistrar); ok {
		url := fmt.Sprintf("%s/webhooks/%s", s.publicBaseURL, integ.ID)
		if err := registrar.RegisterWebhook(ctx, req.Credentials, url, secret); err != nil {
			return nil, fmt.Errorf("registering webhook: %w", err)
		}
	}

	if err := s.integrations.Create(ctx, integ); err != nil {
		return nil, fmt.Errorf("persisting integration: %w", err)
	}

	s.logger.InfoContext(ctx, "integration connected",
		"integration_id", integ.ID, "platform", integ.Platform, "external_id", integ.ExternalID)
	return integ, nil
}

// Disconnect tears down platform-side state and deletes the integration.
// Teardown failures are logged and never block the delete; messages cascade
// with the row.
func (s *IntegrationService) Disconnect(ctx context.Context, id uuid.UUID) error {
	integ, err := s.integrations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading integration %s: %w", id, err)
	}

	if adapter, aerr := s.adapters.For(integ.Platform); aerr == nil {
		if terr := adapter.Teardown(ctx, integ.Credentials); terr != nil {
			s.logger.WarnContext(ctx, "platform teardown failed, deleting anyway",
				"error", terr, "integration_id", id, "platform", integ.Platform)
		}
	}

	if err := s.integrations.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting integration %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "integration disconnected", "integration_id", id)
	return nil
}

func newWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
