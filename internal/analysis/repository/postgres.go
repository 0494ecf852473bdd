package repository

import (
	"context"
	"database/sql"
	"errors"

	"rank-lens/gateway/internal/analysis/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an analysis record repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetLatestByDomain returns the most recently updated record for domainName,
// or nil if the domain has never been analyzed. The read is idempotent.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetLatestByDomain(ctx context.Context, domainName string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, domain, status, analysis_data, created_at, updated_at
		FROM analysis_results WHERE domain = $1
		ORDER BY updated_at DESC LIMIT 1`, domainName)

	var rec domain.Record
	var payload []byte
	err := row.Scan(&rec.ID, &rec.Domain, &rec.Status, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Payload = payload
	return &rec, nil
}

// Create persists the record. The record must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (id, domain, status, analysis_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		rec.ID, rec.Domain, string(rec.Status), []byte(rec.Payload), rec.CreatedAt)
	return err
}
