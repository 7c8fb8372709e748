package domain

import (
	"context"

	"github.com/google/uuid"
)

// IntegrationRepository is the persistence contract for integrations.
// Deleting an integration cascades its messages.
type IntegrationRepository interface {
	Create(ctx context.Context, integ *Integration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status IntegrationStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageRepository is the append-only conversation log.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	// RecentByChat returns up to limit messages for one conversation,
	// oldest first, excluding the row identified by excludeID (the turn
	// currently being answered). Pass uuid.Nil to exclude nothing.
	RecentByChat(ctx context.Context, integrationID uuid.UUID, chatID string, excludeID uuid.UUID, limit int) ([]*Message, error)
}

// BotRepository reads AI personas; the gateway never mutates them.
type BotRepository interface {
	// MostRecentActive returns the account's active bot with the latest
	// updated_at, or ErrNotFound when the account has no active bot.
	MostRecentActive(ctx context.Context, accountID uuid.UUID) (*Bot, error)
}

// ExecutionRepository records AI invocation audit rows.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *Execution) error
}

// AccountSettingsRepository looks up per-account provider credentials, used
// when no deployment-level key is configured for a provider.
type AccountSettingsRepository interface {
	// ProviderAPIKey returns ErrNotFound when the account has no stored
	// key for the named provider.
	ProviderAPIKey(ctx context.Context, accountID uuid.UUID, provider string) (string, error)
}
