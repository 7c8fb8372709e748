package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/botbridge/gateway/internal/gateway/domain"
	"github.com/botbridge/gateway/internal/platform/messagebroker"
)

// retryBackoff is the redelivery delay per prior attempt; the last entry
// repeats if MaxDeliver exceeds its length.
var retryBackoff = []time.Duration{2 * time.Second, 15 * time.Second, time.Minute}

// JobHandler runs one decoded job. The processor implements it.
type JobHandler interface {
	Process(ctx context.Context, job domain.Job) error
}

// jobFetcher is the slice of jetstream.Consumer the worker loop needs.
type jobFetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// JobConsumer runs a fixed-size worker pool over the durable job stream.
// Each worker owns one job at a time; different conversations interleave
// freely across workers. Jobs whose delivery attempts are exhausted go to
// the dead-letter stream instead of being discarded.
type JobConsumer struct {
	fetcher     jobFetcher
	dead        Publisher
	handler     JobHandler
	concurrency int
	maxDeliver  int
	logger      *slog.Logger
}

func NewJobConsumer(fetcher jobFetcher, dead Publisher, handler JobHandler, concurrency, maxDeliver int, logger *slog.Logger) *JobConsumer {
	return &JobConsumer{
		fetcher:     fetcher,
		dead:        dead,
		handler:     handler,
		concurrency: concurrency,
		maxDeliver:  maxDeliver,
		logger:      logger.With("component", "job_consumer"),
	}
}

// Run blocks until ctx is cancelled, fetching and processing jobs with the
// configured concurrency.
func (c *JobConsumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.concurrency; i++ {
		worker := i
		g.Go(func() error {
			return c.workerLoop(ctx, worker)
		})
	}
	return g.Wait()
}

func (c *JobConsumer) workerLoop(ctx context.Context, worker int) error {
	logger := c.logger.With("worker", worker)
	logger.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "worker shutting down")
			return ctx.Err()
		default:
		}

		batch, err := c.fetcher.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.WarnContext(ctx, "fetching job failed", "error", err)
			continue
		}

		for msg := range batch.Messages() {
			c.handle(ctx, msg, logger)
		}
		if err := batch.Error(); err != nil {
			logger.WarnContext(ctx, "job batch ended with error", "error", err)
		}
	}
}

func (c *JobConsumer) handle(ctx context.Context, msg jetstream.Msg, logger *slog.Logger) {
	var job domain.Job
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		// A malformed envelope never deserializes on redelivery; keep it
		// for inspection instead of retrying.
		logger.ErrorContext(ctx, "dead-lettering malformed job envelope", "error", err, "subject", msg.Subject())
		c.deadLetter(ctx, msg, logger, "unknown")
		return
	}

	platform := string(job.Platform)
	if err := c.handler.Process(ctx, job); err != nil {
		attempt := c.deliveryAttempt(msg)
		if attempt >= c.maxDeliver {
			logger.ErrorContext(ctx, "job exhausted delivery attempts, dead-lettering",
				"error", err, "integration_id", job.IntegrationID, "attempts", attempt)
			c.deadLetter(ctx, msg, logger, platform)
			return
		}

		delay := backoffFor(attempt)
		logger.WarnContext(ctx, "job failed, scheduling redelivery",
			"error", err, "integration_id", job.IntegrationID, "attempt", attempt, "retry_in", delay)
		if err := msg.NakWithDelay(delay); err != nil {
			logger.ErrorContext(ctx, "failed to nak job", "error", err)
		}
		jobsProcessedCounter.WithLabelValues(platform, "retried").Inc()
		return
	}

	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack completed job", "error", err, "integration_id", job.IntegrationID)
		return
	}
	jobsProcessedCounter.WithLabelValues(platform, "completed").Inc()
}

// deadLetter retains the payload on the dead-letter stream, then acks the
// original so the work queue stops redelivering it.
func (c *JobConsumer) deadLetter(ctx context.Context, msg jetstream.Msg, logger *slog.Logger, platform string) {
	if err := c.dead.Publish(ctx, messagebroker.DeadLetterSubject, msg.Data()); err != nil {
		// Leave the message unacked; it will redeliver and get another
		// chance to reach the dead-letter stream.
		logger.ErrorContext(ctx, "failed to publish to dead-letter stream", "error", err)
		return
	}
	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack dead-lettered job", "error", err)
	}
	jobsProcessedCounter.WithLabelValues(platform, "dead_lettered").Inc()
}

func (c *JobConsumer) deliveryAttempt(msg jetstream.Msg) int {
	md, err := msg.Metadata()
	if err != nil || md == nil {
		return 1
	}
	return int(md.NumDelivered)
}

func backoffFor(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(retryBackoff) {
		idx = len(retryBackoff) - 1
	}
	return retryBackoff[idx]
}
