// Package engine is the boundary to the asynchronous analysis job engine: a
// fire-and-forget submit trigger and an idempotent latest-record read.
package engine

import (
	"context"
	"errors"

	"rank-lens/gateway/internal/analysis/domain"
)

// ErrCooldown is returned by Submit when the same domain was submitted within
// the duplicate-submission cooldown window.
var ErrCooldown = errors.New("engine: domain submitted too recently")

// Fetcher reads the latest analysis record for a domain. A domain with no
// record yet yields (nil, nil).
type Fetcher interface {
	GetLatestByDomain(ctx context.Context, domainName string) (*domain.Record, error)
}

// Submitter triggers an analysis run for a domain. The run is asynchronous;
// a nil error only means the trigger was accepted.
type Submitter interface {
	Submit(ctx context.Context, domainName string) error
}
