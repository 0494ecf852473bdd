package repository

import (
	"context"

	"rank-lens/gateway/internal/profile/domain"
)

// Repository defines persistence for profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	Create(ctx context.Context, p *domain.Profile) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
}
