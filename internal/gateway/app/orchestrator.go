package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/adapters/modelprovider"
	"github.com/botbridge/gateway/internal/gateway/domain"
)

// Fixed user-facing fallback texts. The end user always gets some reply;
// provider trouble degrades the answer, never drops it.
const (
	FallbackNoActiveBot = "There is no active assistant configured for this channel yet. Please check back later."
	FallbackUnavailable = "The assistant is not available right now. Please try again later."
	FallbackError       = "Sorry, I couldn't process your message right now. Please try again in a moment."
)

// ProviderResolver picks the language-model client for one invocation.
type ProviderResolver interface {
	Resolve(ctx context.Context, accountID uuid.UUID, provider string) (modelprovider.Provider, error)
}

// Orchestrator produces the reply text for one inbound message: it resolves
// the answering bot and its provider, assembles the conversation window, and
// records one Execution per provider invocation attempt.
type Orchestrator struct {
	bots          domain.BotRepository
	messages      domain.MessageRepository
	executions    domain.ExecutionRepository
	resolver      ProviderResolver
	historyWindow int
	logger        *slog.Logger
}

func NewOrchestrator(
	bots domain.BotRepository,
	messages domain.MessageRepository,
	executions domain.ExecutionRepository,
	resolver ProviderResolver,
	historyWindow int,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		bots:          bots,
		messages:      messages,
		executions:    executions,
		resolver:      resolver,
		historyWindow: historyWindow,
		logger:        logger.With("component", "orchestrator"),
	}
}

// Reply answers the already-persisted incoming message. Provider-side
// failures are absorbed into fallback texts so the job still completes; only
// history-read failures return an error, which the queue retries.
func (o *Orchestrator) Reply(ctx context.Context, integ *domain.Integration, incoming *domain.Message) (string, error) {
	bot, err := o.bots.MostRecentActive(ctx, integ.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		o.logger.InfoContext(ctx, "no active bot for account", "account_id", integ.AccountID, "integration_id", integ.ID)
		return FallbackNoActiveBot, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving bot for account %s: %w", integ.AccountID, err)
	}

	history, err := o.conversationWindow(ctx, integ.ID, incoming)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reply, invokeErr := o.invoke(ctx, integ, bot, history, incoming.Text)
	duration := time.Since(start)

	status := domain.ExecutionStatusSuccess
	errMsg := ""
	if invokeErr != nil {
		status = domain.ExecutionStatusError
		errMsg = invokeErr.Error()
	}
	aiInvocationDuration.WithLabelValues(bot.Provider, string(status)).Observe(duration.Seconds())

	exec := &domain.Execution{
		ID:            uuid.New(),
		BotID:         bot.ID,
		AccountID:     integ.AccountID,
		IntegrationID: uuid.NullUUID{UUID: integ.ID, Valid: true},
		Status:        status,
		ErrorMessage:  errMsg,
		DurationMS:    duration.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	// Audit write failures must not re-run the invocation: a retried job
	// would send a second reply. Log and move on.
	if err := o.executions.Create(ctx, exec); err != nil {
		o.logger.ErrorContext(ctx, "failed to record execution", "error", err, "bot_id", bot.ID)
	}

	if invokeErr != nil {
		o.logger.WarnContext(ctx, "AI invocation failed, replying with fallback",
			"error", invokeErr, "bot_id", bot.ID, "provider", bot.Provider, "duration_ms", duration.Milliseconds())
		if errors.Is(invokeErr, domain.ErrProviderUnavailable) {
			return FallbackUnavailable, nil
		}
		return FallbackError, nil
	}

	o.logger.InfoContext(ctx, "AI invocation succeeded",
		"bot_id", bot.ID, "provider", bot.Provider, "duration_ms", duration.Milliseconds())
	return reply, nil
}

func (o *Orchestrator) invoke(ctx context.Context, integ *domain.Integration, bot *domain.Bot, history []modelprovider.ChatMessage, prompt string) (string, error) {
	provider, err := o.resolver.Resolve(ctx, integ.AccountID, bot.Provider)
	if err != nil {
		return "", err
	}
	return provider.Complete(ctx, modelprovider.Request{
		Model:        bot.Model,
		Temperature:  bot.Temperature,
		SystemPrompt: bot.EffectiveSystemPrompt(),
		History:      history,
		Prompt:       prompt,
	})
}

// conversationWindow maps the most recent persisted turns of the chat into
// provider roles, oldest first, excluding the message being answered.
func (o *Orchestrator) conversationWindow(ctx context.Context, integrationID uuid.UUID, incoming *domain.Message) ([]modelprovider.ChatMessage, error) {
	recent, err := o.messages.RecentByChat(ctx, integrationID, incoming.ChatID, incoming.ID, o.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading conversation history for chat %s: %w", incoming.ChatID, err)
	}

	window := make([]modelprovider.ChatMessage, 0, len(recent))
	for _, m := range recent {
		role := modelprovider.RoleUser
		if m.Direction == domain.DirectionOutgoing {
			role = modelprovider.RoleAssistant
		}
		window = append(window, modelprovider.ChatMessage{Role: role, Content: m.Text})
	}
	return window, nil
}
