package repository

import (
	"context"
	"database/sql"
	"errors"

	"rank-lens/gateway/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Org, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(slug, ''), website_url, created_at
		FROM organizations WHERE id = $1`, id)

	var o domain.Org
	var websiteURL sql.NullString
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &websiteURL, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if websiteURL.Valid {
		o.WebsiteURL = &websiteURL.String
	}
	return &o, nil
}

// Create persists the organization to the database. The organization must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Org) error {
	var websiteURL sql.NullString
	if o.WebsiteURL != nil {
		websiteURL = sql.NullString{String: *o.WebsiteURL, Valid: true}
	}
	var slug sql.NullString
	if o.Slug != "" {
		slug = sql.NullString{String: o.Slug, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, slug, website_url, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.Name, slug, websiteURL, o.CreatedAt)
	return err
}
