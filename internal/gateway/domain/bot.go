package domain

import (
	"time"

	"github.com/google/uuid"
)

type BotStatus string

const (
	BotStatusActive   BotStatus = "active"
	BotStatusInactive BotStatus = "inactive"
)

// Bot is an AI persona owned by an account. Bots are managed by the dashboard
// surface; the gateway only reads them to route replies.
type Bot struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	Status       BotStatus `json:"status"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Temperature  float32   `json:"temperature"`
	SystemPrompt string    `json:"system_prompt"`
	Personality  string    `json:"personality"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectiveSystemPrompt returns the explicit system prompt, falling back to
// the persona's personality text, falling back to empty.
func (b *Bot) EffectiveSystemPrompt() string {
	if b.SystemPrompt != "" {
		return b.SystemPrompt
	}
	return b.Personality
}
