package repository

import (
	"context"

	"rank-lens/gateway/internal/gatekeeper/domain"
)

// Repository defines persistence for route policies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.RoutePolicy, error)
	ListEnabled(ctx context.Context) ([]*domain.RoutePolicy, error)
	Create(ctx context.Context, p *domain.RoutePolicy) error
	Update(ctx context.Context, p *domain.RoutePolicy) error
}
