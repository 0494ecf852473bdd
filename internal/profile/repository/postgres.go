package repository

import (
	"context"
	"database/sql"
	"errors"

	"rank-lens/gateway/internal/profile/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a profile repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the profile for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, organization_id, created_at, updated_at
		FROM profiles WHERE id = $1`, id)

	var p domain.Profile
	var orgID sql.NullString
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &orgID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if orgID.Valid {
		p.OrganizationID = &orgID.String
	}
	return &p, nil
}

// Create persists the profile to the database. The profile must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Profile) error {
	var orgID sql.NullString
	if p.OrganizationID != nil {
		orgID = sql.NullString{String: *p.OrganizationID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		p.ID, p.Email, p.FullName, string(p.Role), orgID, p.CreatedAt)
	return err
}

// UpdateRole sets the role for the profile with id. Returns an error if the update fails.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
	return err
}
