package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

func TestJobQueue_Enqueue(t *testing.T) {
	publisher := new(MockPublisher)
	q := NewJobQueue(publisher, discardLogger())

	job := domain.Job{
		IntegrationID: uuid.New(),
		Platform:      domain.PlatformWhatsApp,
		RawPayload:    json.RawMessage(`{"object":"whatsapp_business_account"}`),
	}

	publisher.On("Publish", mock.Anything, "jobs.inbound.whatsapp", mock.MatchedBy(func(data []byte) bool {
		var got domain.Job
		if err := json.Unmarshal(data, &got); err != nil {
			return false
		}
		return got.IntegrationID == job.IntegrationID && string(got.RawPayload) == string(job.RawPayload)
	})).Return(nil).Once()

	err := q.Enqueue(context.Background(), job)
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestJobQueue_Enqueue_PublishFailure(t *testing.T) {
	publisher := new(MockPublisher)
	q := NewJobQueue(publisher, discardLogger())

	publisher.On("Publish", mock.Anything, "jobs.inbound.telegram", mock.Anything).
		Return(errors.New("no responders")).Once()

	err := q.Enqueue(context.Background(), domain.Job{
		IntegrationID: uuid.New(),
		Platform:      domain.PlatformTelegram,
		RawPayload:    json.RawMessage(`{}`),
	})
	assert.Error(t, err)
}
