package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

type PgMessageRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgMessageRepository(db DB, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger.With("component", "message_repository_pg")}
}

func (r *PgMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (
			id, integration_id, platform, direction, chat_id,
			external_user_id, external_username, text_content, platform_message_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.IntegrationID, msg.Platform, msg.Direction, msg.ChatID,
		msg.ExternalUserID, msg.ExternalUsername, msg.Text, msg.PlatformMessageID, msg.Status, msg.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert message",
			"error", err, "message_id", msg.ID, "integration_id", msg.IntegrationID)
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// RecentByChat returns up to limit turns of one conversation, oldest first.
// The newest rows win the cut; the inner query selects them in descending
// creation order and the outer one restores chronological order.
func (r *PgMessageRepository) RecentByChat(ctx context.Context, integrationID uuid.UUID, chatID string, excludeID uuid.UUID, limit int) ([]*domain.Message, error) {
	query := `
		SELECT id, integration_id, platform, direction, chat_id,
		       external_user_id, external_username, text_content, platform_message_id, status, created_at
		FROM (
			SELECT id, integration_id, platform, direction, chat_id,
			       external_user_id, external_username, text_content, platform_message_id, status, created_at
			FROM messages
			WHERE integration_id = $1 AND chat_id = $2 AND id <> $3
			ORDER BY created_at DESC
			LIMIT $4
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, integrationID, chatID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting recent messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.IntegrationID, &m.Platform, &m.Direction, &m.ChatID,
			&m.ExternalUserID, &m.ExternalUsername, &m.Text, &m.PlatformMessageID, &m.Status, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}
