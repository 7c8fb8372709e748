package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Job is the queue's unit of work: one raw webhook payload plus enough
// routing information to decode it. Retry metadata (attempt count, backoff)
// lives in the queue, never in the job body.
type Job struct {
	IntegrationID uuid.UUID       `json:"integration_id"`
	Platform      Platform        `json:"platform"`
	RawPayload    json.RawMessage `json:"raw_payload"`
}
