package repository

import (
	"context"
	"database/sql"
	"errors"

	"rank-lens/gateway/internal/gatekeeper/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a route policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the policy for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RoutePolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, rules, enabled, created_at FROM route_policies WHERE id = $1`, id)

	var p domain.RoutePolicy
	err := row.Scan(&p.ID, &p.Rules, &p.Enabled, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListEnabled returns all enabled policies. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListEnabled(ctx context.Context) ([]*domain.RoutePolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rules, enabled, created_at FROM route_policies
		WHERE enabled = true ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RoutePolicy
	for rows.Next() {
		var p domain.RoutePolicy
		if err := rows.Scan(&p.ID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create persists the policy to the database. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.RoutePolicy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO route_policies (id, rules, enabled, created_at)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.Rules, p.Enabled, p.CreatedAt)
	return err
}

// Update updates the existing policy record in the database. Returns an error if the update fails.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.RoutePolicy) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE route_policies SET rules = $2, enabled = $3 WHERE id = $1`,
		p.ID, p.Rules, p.Enabled)
	return err
}
