package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// JobsStream retains queued webhook jobs until a worker acks them.
	JobsStream = "GATEWAY_JOBS"
	// JobsSubjectPrefix is completed by the platform kind, e.g.
	// "jobs.inbound.telegram".
	JobsSubjectPrefix = "jobs.inbound."

	// DeadLetterStream retains jobs whose delivery attempts were exhausted,
	// for manual inspection. It is limits-retained, not a work queue.
	DeadLetterStream  = "GATEWAY_JOBS_DEAD"
	DeadLetterSubject = "jobs.dead"

	deadLetterMaxAge = 14 * 24 * time.Hour
)

// NATSClient wraps the NATS connection and its JetStream context.
type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewNATSClient connects to NATS and creates a JetStream context.
func NewNATSClient(natsURL, appName string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Error("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	return &NATSClient{conn: nc, js: js, logger: logger}, nil
}

// EnsureStreams creates or updates the job stream and its dead-letter
// companion. Safe to call on every startup.
func (c *NATSClient) EnsureStreams(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      JobsStream,
		Subjects:  []string{JobsSubjectPrefix + "*"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensuring stream %s: %w", JobsStream, err)
	}

	_, err = c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     DeadLetterStream,
		Subjects: []string{DeadLetterSubject},
		Storage:  jetstream.FileStorage,
		MaxAge:   deadLetterMaxAge,
	})
	if err != nil {
		return fmt.Errorf("ensuring stream %s: %w", DeadLetterStream, err)
	}
	return nil
}

// Publish writes one message to a JetStream subject.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// JobsConsumer creates (or updates) the durable pull consumer the worker
// pool fetches from. Redelivery timing is driven by explicit NakWithDelay in
// the consumer loop; maxDeliver caps total attempts before dead-lettering.
func (c *NATSClient) JobsConsumer(ctx context.Context, durable string, maxDeliver int) (jetstream.Consumer, error) {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, JobsStream, jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       2 * time.Minute,
		MaxDeliver:    maxDeliver,
		FilterSubject: JobsSubjectPrefix + "*",
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer %s: %w", durable, err)
	}
	return cons, nil
}

// Close drains the connection so in-flight publishes complete.
func (c *NATSClient) Close() {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("draining NATS connection", "error", err)
		}
	}
}
