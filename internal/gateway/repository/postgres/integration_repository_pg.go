package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/botbridge/gateway/internal/gateway/domain"
)

type PgIntegrationRepository struct {
	db     DB
	logger *slog.Logger
}

func NewPgIntegrationRepository(db DB, logger *slog.Logger) *PgIntegrationRepository {
	return &PgIntegrationRepository{db: db, logger: logger.With("component", "integration_repository_pg")}
}

func (r *PgIntegrationRepository) Create(ctx context.Context, integ *domain.Integration) error {
	creds, err := json.Marshal(integ.Credentials)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	query := `
		INSERT INTO integrations (id, account_id, platform, status, credentials, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		integ.ID, integ.AccountID, integ.Platform, integ.Status, creds, integ.ExternalID, integ.CreatedAt, integ.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to insert integration", "error", err, "integration_id", integ.ID)
		return fmt.Errorf("inserting integration: %w", err)
	}
	return nil
}

func (r *PgIntegrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	query := `
		SELECT id, account_id, platform, status, credentials, external_id, created_at, updated_at
		FROM integrations
		WHERE id = $1
	`
	var (
		integ domain.Integration
		creds []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&integ.ID, &integ.AccountID, &integ.Platform, &integ.Status, &creds, &integ.ExternalID, &integ.CreatedAt, &integ.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting integration %s: %w", id, err)
	}

	if err := json.Unmarshal(creds, &integ.Credentials); err != nil {
		return nil, fmt.Errorf("unmarshaling credentials for integration %s: %w", id, err)
	}
	return &integ, nil
}

func (r *PgIntegrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.IntegrationStatus) error {
	query := `UPDATE integrations SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating integration %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the integration; its messages cascade via the foreign key.
func (r *PgIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM integrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting integration %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
