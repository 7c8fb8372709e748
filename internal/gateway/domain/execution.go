package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
)

// Execution is the audit record of one AI-provider invocation attempt.
// Exactly one row is written per attempt, success or not, and rows are never
// mutated afterwards.
type Execution struct {
	ID            uuid.UUID       `json:"id"`
	BotID         uuid.UUID       `json:"bot_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	IntegrationID uuid.NullUUID   `json:"integration_id,omitempty"`
	Status        ExecutionStatus `json:"status"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	DurationMS    int64           `json:"duration_ms"`
	// Cost is carried for the dashboard's billing view; invocations are
	// currently unpriced so it stays zero.
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}
