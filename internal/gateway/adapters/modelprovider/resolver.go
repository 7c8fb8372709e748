package modelprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

// Config carries the deployment-level provider credentials, injected at
// construction. A key left empty falls through to the per-account lookup.
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

// Resolver picks the provider client for one invocation: the deployment key
// wins, the account's stored credential is next, and having neither is a
// domain.ErrProviderUnavailable.
type Resolver struct {
	cfg      Config
	settings domain.AccountSettingsRepository
	logger   *slog.Logger
}

func NewResolver(cfg Config, settings domain.AccountSettingsRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		settings: settings,
		logger:   logger.With("component", "provider_resolver"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, accountID uuid.UUID, provider string) (Provider, error) {
	key, err := r.apiKey(ctx, accountID, provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(key, r.cfg.OpenAIBaseURL, r.logger), nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, key, r.logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", provider, domain.ErrProviderUnavailable)
	}
}

func (r *Resolver) apiKey(ctx context.Context, accountID uuid.UUID, provider string) (string, error) {
	switch provider {
	case ProviderOpenAI:
		if r.cfg.OpenAIAPIKey != "" {
			return r.cfg.OpenAIAPIKey, nil
		}
	case ProviderGemini:
		if r.cfg.GeminiAPIKey != "" {
			return r.cfg.GeminiAPIKey, nil
		}
	}

	key, err := r.settings.ProviderAPIKey(ctx, accountID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.InfoContext(ctx, "no credential for provider", "account_id", accountID, "provider", provider)
		return "", fmt.Errorf("no %s credential for account %s: %w", provider, accountID, domain.ErrProviderUnavailable)
	}
	if err != nil {
		return "", fmt.Errorf("loading %s credential: %w", provider, err)
	}
	return key, nil
}
