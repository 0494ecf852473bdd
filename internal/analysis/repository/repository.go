package repository

import (
	"context"

	"rank-lens/gateway/internal/analysis/domain"
)

// Repository defines persistence for analysis records.
type Repository interface {
	GetLatestByDomain(ctx context.Context, domainName string) (*domain.Record, error)
	Create(ctx context.Context, rec *domain.Record) error
}
