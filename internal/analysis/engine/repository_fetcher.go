package engine

import (
	"context"

	"rank-lens/gateway/internal/analysis/domain"
	"rank-lens/gateway/internal/analysis/repository"
)

// RepositoryFetcher reads latest records straight from the analysis_results
// store the job engine writes into.
type RepositoryFetcher struct {
	repo repository.Repository
}

// NewRepositoryFetcher returns a Fetcher backed by repo.
func NewRepositoryFetcher(repo repository.Repository) *RepositoryFetcher {
	return &RepositoryFetcher{repo: repo}
}

func (f *RepositoryFetcher) GetLatestByDomain(ctx context.Context, domainName string) (*domain.Record, error) {
	return f.repo.GetLatestByDomain(ctx, domainName)
}
