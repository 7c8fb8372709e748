package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/botbridge/gateway/internal/gateway/adapters/chatplatform"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

// Replier produces the reply text for one persisted incoming message.
type Replier interface {
	Reply(ctx context.Context, integ *domain.Integration, incoming *domain.Message) (string, error)
}

// ReplyDispatcher delivers a reply and persists the outgoing turn.
type ReplyDispatcher interface {
	Dispatch(ctx context.Context, integ *domain.Integration, chatID, text string) error
}

// JobProcessor runs one queue job end to end: decode the raw payload via the
// matching adapter, persist each text update, orchestrate a reply, dispatch
// it. Returning nil acks the job; returning an error hands it back to the
// queue's retry policy.
type JobProcessor struct {
	integrations domain.IntegrationRepository
	messages     domain.MessageRepository
	adapters     *chatplatform.Registry
	orchestrator Replier
	dispatcher   ReplyDispatcher
	logger       *slog.Logger
}

func NewJobProcessor(
	integrations domain.IntegrationRepository,
	messages domain.MessageRepository,
	adapters *chatplatform.Registry,
	orchestrator Replier,
	dispatcher ReplyDispatcher,
	logger *slog.Logger,
) *JobProcessor {
	return &JobProcessor{
		integrations: integrations,
		messages:     messages,
		adapters:     adapters,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		logger:       logger.With("component", "job_processor"),
	}
}

func (p *JobProcessor) Process(ctx context.Context, job domain.Job) error {
	logger := p.logger.With("integration_id", job.IntegrationID, "platform", job.Platform)

	integ, err := p.integrations.GetByID(ctx, job.IntegrationID)
	if errors.Is(err, domain.ErrNotFound) {
		// Integration deleted after the webhook arrived. Terminal, not an
		// error: redelivering would never succeed.
		logger.InfoContext(ctx, "dropping job for deleted integration")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading integration %s: %w", job.IntegrationID, err)
	}

	adapter, err := p.adapters.For(integ.Platform)
	if err != nil {
		logger.ErrorContext(ctx, "dropping job for unsupported platform", "error", err)
		return nil
	}

	updates, err := adapter.DecodeUpdates(job.RawPayload)
	if err != nil {
		// The payload will never decode differently on redelivery.
		logger.ErrorContext(ctx, "dropping undecodable payload", "error", err)
		return nil
	}

	for _, update := range updates {
		if !update.IsActionable() {
			logger.DebugContext(ctx, "ignoring update without text", "kind", update.Kind)
			continue
		}
		if err := p.processUpdate(ctx, integ, update); err != nil {
			return err
		}
	}
	return nil
}

func (p *JobProcessor) processUpdate(ctx context.Context, integ *domain.Integration, update domain.InboundUpdate) error {
	incoming := domain.NewIncomingMessage(integ, update)
	if err := p.messages.Create(ctx, incoming); err != nil {
		return fmt.Errorf("persisting incoming message: %w", err)
	}

	reply, err := p.orchestrator.Reply(ctx, integ, incoming)
	if err != nil {
		return err
	}

	return p.dispatcher.Dispatch(ctx, integ, update.ChatID, reply)
}
