package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

type PgBotRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgBotRepository(db DB, logger *slog.Logger) *PgBotRepository {
	return &PgBotRepository{db: db, logger: logger.With("component", "bot_repository_pg")}
}

// MostRecentActive implements the routing policy: the account's active bot
// with the latest updated_at answers.
func (r *PgBotRepository) MostRecentActive(ctx context.Context, accountID uuid.UUID) (*domain.Bot, error) {
	query := `
		SELECT id, account_id, status, provider, model, temperature, system_prompt, personality, created_at, updated_at
		FROM bots
		WHERE account_id = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var b domain.Bot
	err := r.db.QueryRow(ctx, query, accountID, domain.BotStatusActive).Scan(
		&b.ID, &b.AccountID, &b.Status, &b.Provider, &b.Model, &b.Temperature,
		&b.SystemPrompt, &b.Personality, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting active bot for account %s: %w", accountID, err)
	}
	return &b, nil
}
