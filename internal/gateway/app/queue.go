package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/botbridge/gateway/internal/gateway/domain"
	"github.com/botbridge/gateway/internal/platform/messagebroker"
)

// Publisher is the slice of the message broker the queue needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// JobQueue wraps the broker with the job envelope and subject naming. The
// webhook receiver enqueues through it; retry and redelivery stay inside the
// broker.
type JobQueue struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewJobQueue(publisher Publisher, logger *slog.Logger) *JobQueue {
	return &JobQueue{
		publisher: publisher,
		logger:    logger.With("component", "job_queue"),
	}
}

func (q *JobQueue) Enqueue(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	subject := messagebroker.JobsSubjectPrefix + string(job.Platform)
	if err := q.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("enqueuing job for integration %s: %w", job.IntegrationID, err)
	}

	webhooksEnqueuedCounter.WithLabelValues(string(job.Platform)).Inc()
	q.logger.DebugContext(ctx, "job enqueued", "integration_id", job.IntegrationID, "subject", subject)
	return nil
}
