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

type PgAccountSettingsRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgAccountSettingsRepository(db DB, logger *slog.Logger) *PgAccountSettingsRepository {
	return &PgAccountSettingsRepository{db: db, logger: logger.With("component", "account_settings_repository_pg")}
}

func (r *PgAccountSettingsRepository) ProviderAPIKey(ctx context.Context, accountID uuid.UUID, provider string) (string, error) {
	query := `SELECT api_key FROM account_provider_settings WHERE account_id = $1 AND provider = $2`

	var key string
	err := r.db.QueryRow(ctx, query, accountID, provider).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("selecting %s key for account %s: %w", provider, accountID, err)
	}
	return key, nil
}
