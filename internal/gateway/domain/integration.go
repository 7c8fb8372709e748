package domain

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the external chat platform an integration speaks to.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
)

// IsValid reports whether p is a platform this gateway knows how to serve.
func (p Platform) IsValid() bool {
	return p == PlatformTelegram || p == PlatformWhatsApp
}

type IntegrationStatus string

const (
	IntegrationStatusConnected    IntegrationStatus = "connected"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
	IntegrationStatusError        IntegrationStatus = "error"
)

// Credentials holds the per-platform secrets for one integration. The core
// treats them as opaque; only the matching platform adapter interprets them.
type Credentials struct {
	BotToken      string `json:"bot_token,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
	VerifyToken   string `json:"verify_token,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Integration is a configured connection between one account and one
// external chat platform.
type Integration struct {
	ID          uuid.UUID         `json:"id"`
	AccountID   uuid.UUID         `json:"account_id"`
	Platform    Platform          `json:"platform"`
	Status      IntegrationStatus `json:"status"`
	Credentials Credentials       `json:"credentials"`
	// ExternalID is the canonical platform identity: the bot id for
	// telegram, the phone number id for whatsapp.
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
