package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/botbridge/gateway/internal/gateway/adapters/chatplatform"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

// OutboundDispatcher sends a reply on the originating platform and persists
// the outgoing turn. Send failures propagate so the queue can retry the job;
// the AI side already produced its text, and re-sending is usually safe.
type OutboundDispatcher struct {
	adapters *chatplatform.Registry
	messages domain.MessageRepository
	logger   *slog.Logger
}

func NewOutboundDispatcher(adapters *chatplatform.Registry, messages domain.MessageRepository, logger *slog.Logger) *OutboundDispatcher {
	return &OutboundDispatcher{
		adapters: adapters,
		messages: messages,
		logger:   logger.With("component", "outbound_dispatcher"),
	}
}

func (d *OutboundDispatcher) Dispatch(ctx context.Context, integ *domain.Integration, chatID, text string) error {
	adapter, err := d.adapters.For(integ.Platform)
	if err != nil {
		return err
	}

	platformMessageID, err := adapter.Send(ctx, integ.Credentials, chatID, text)
	if err != nil {
		return fmt.Errorf("sending reply to chat %s: %w", chatID, err)
	}
	repliesSentCounter.WithLabelValues(string(integ.Platform)).Inc()

	msg := domain.NewOutgoingMessage(integ, chatID, text, platformMessageID)
	if err := d.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("persisting outgoing message: %w", err)
	}

	d.logger.InfoContext(ctx, "reply dispatched",
		"integration_id", integ.ID, "chat_id", chatID, "platform_message_id", platformMessageID)
	return nil
}
