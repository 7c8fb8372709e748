package domain

import (
	"time"

	"github.com/google/uuid"
)

// UpdateKind classifies a canonical inbound update after decoding.
type UpdateKind string

const (
	UpdateKindMessage  UpdateKind = "message"
	UpdateKindEdited   UpdateKind = "edited"
	UpdateKindCallback UpdateKind = "callback"
	UpdateKindUnknown  UpdateKind = "unknown"
)

// InboundUpdate is the platform-agnostic shape every adapter normalizes a raw
// webhook payload into. It is transient and never persisted as such.
type InboundUpdate struct {
	Kind              UpdateKind
	ChatID            string
	UserID            string
	Username          string
	Text              string
	PlatformMessageID string
}

// IsActionable reports whether the update should produce a reply. Anything
// that is not a plain message with a text body and a chat id is a no-op for
// the worker.
func (u InboundUpdate) IsActionable() bool {
	return u.Kind == UpdateKindMessage && u.Text != "" && u.ChatID != ""
}

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type MessageStatus string

const (
	MessageStatusReceived MessageStatus = "received"
	MessageStatusSent     MessageStatus = "sent"
	MessageStatusFailed   MessageStatus = "failed"
)

// Message is one persisted turn in a conversation. Rows are immutable once
// written; conversation order is creation order.
type Message struct {
	ID                uuid.UUID     `json:"id"`
	IntegrationID     uuid.UUID     `json:"integration_id"`
	Platform          Platform      `json:"platform"`
	Direction         Direction     `json:"direction"`
	ChatID            string        `json:"chat_id"`
	ExternalUserID    string        `json:"external_user_id,omitempty"`
	ExternalUsername  string        `json:"external_username,omitempty"`
	Text              string        `json:"text"`
	PlatformMessageID string        `json:"platform_message_id,omitempty"`
	Status            MessageStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// NewIncomingMessage builds the persisted row for a decoded inbound update.
func NewIncomingMessage(integ *Integration, u InboundUpdate) *Message {
	return &Message{
		ID:                uuid.New(),
		IntegrationID:     integ.ID,
		Platform:          integ.Platform,
		Direction:         DirectionIncoming,
		ChatID:            u.ChatID,
		ExternalUserID:    u.UserID,
		ExternalUsername:  u.Username,
		Text:              u.Text,
		PlatformMessageID: u.PlatformMessageID,
		Status:            MessageStatusReceived,
		CreatedAt:         time.Now().UTC(),
	}
}

// NewOutgoingMessage builds the persisted row for a reply that the platform
// accepted for delivery.
func NewOutgoingMessage(integ *Integration, chatID, text, platformMessageID string) *Message {
	return &Message{
		ID:                uuid.New(),
		IntegrationID:     integ.ID,
		Platform:          integ.Platform,
		Direction:         DirectionOutgoing,
		ChatID:            chatID,
		Text:              text,
		PlatformMessageID: platformMessageID,
		Status:            MessageStatusSent,
		CreatedAt:         time.Now().UTC(),
	}
}
