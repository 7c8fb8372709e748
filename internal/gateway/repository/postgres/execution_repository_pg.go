package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

type PgExecutionRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgExecutionRepository(db DB, logger *slog.Logger) *PgExecutionRepository {
	return &PgExecutionRepository{db: db, logger: logger.With("component", "execution_repository_pg")}
}

func (r *PgExecutionRepository) Create(ctx context.Context, exec *domain.Execution) error {
	query := `
		INSERT INTO executions (id, bot_id, account_id, integration_id, status, error_message, duration_ms, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		exec.ID, exec.BotID, exec.AccountID, exec.IntegrationID,
		exec.Status, exec.ErrorMessage, exec.DurationMS, exec.Cost, exec.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert execution", "error", err, "execution_id", exec.ID)
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}
