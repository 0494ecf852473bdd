// Package resolver derives the analysis domain for a profile: it fetches the
// linked organization and normalizes its website URL to a bare domain.
package resolver

import (
	"context"
	"strings"
	"sync"

	orgdomain "rank-lens/gateway/internal/organization/domain"
	profiledomain "rank-lens/gateway/internal/profile/domain"
)

// OrgGetter is the minimal organization read needed by the resolver.
type OrgGetter interface {
	GetByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// Resolution is the derived organization/domain pair for a profile.
// Organization is nil when the profile has none; Domain is "" when no website
// URL is configured.
type Resolution struct {
	Organization *orgdomain.Org
	Domain       string
}

// Resolver resolves profiles to organizations and normalized domains.
// The last resolution is cached strictly per organization id: a profile with a
// different organization id always refetches, so a stale organization can
// never leak across profiles.
type Resolver struct {
	mu          sync.Mutex
	orgs        OrgGetter
	cachedOrgID string
	cached      Resolution
	hasCache    bool
}

// New returns a Resolver reading organizations from orgs.
func New(orgs OrgGetter) *Resolver {
	return &Resolver{orgs: orgs}
}

// Resolve returns the organization and normalized domain for p.
// A nil profile or a profile without an organization resolves to the empty
// Resolution with no error. Fetch errors are returned for the caller to
// classify; nothing is cached on error.
func (r *Resolver) Resolve(ctx context.Context, p *profiledomain.Profile) (Resolution, error) {
	if !p.HasOrganization() {
		return Resolution{}, nil
	}
	orgID := *p.OrganizationID

	r.mu.Lock()
	if r.hasCache && r.cachedOrgID == orgID {
		res := r.cached
		r.mu.Unlock()
		return res, nil
	}
	r.mu.Unlock()

	org, err := r.orgs.GetByID(ctx, orgID)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Organization: org}
	if org.HasWebsiteURL() {
		res.Domain = Normalize(*org.WebsiteURL)
	}

	r.mu.Lock()
	r.cachedOrgID = orgID
	r.cached = res
	r.hasCache = true
	r.mu.Unlock()
	return res, nil
}

// Invalidate drops the cached resolution, forcing the next Resolve to refetch.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.hasCache = false
	r.cachedOrgID = ""
	r.cached = Resolution{}
	r.mu.Unlock()
}

// Normalize reduces a website URL to a bare domain: it strips a leading
// http:// or https://, a leading www., and one trailing slash. It is total
// (never fails) and preserves case; already-bare domains pass through
// unchanged, so applying it twice is a no-op.
func Normalize(raw string) string {
	d := strings.TrimSpace(raw)
	if strings.HasPrefix(d, "http://") {
		d = d[len("http://"):]
	} else if strings.HasPrefix(d, "https://") {
		d = d[len("https://"):]
	}
	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimSuffix(d, "/")
	return d
}
