package engine

import "context"

// RouteRule is the per-route access classification the gatekeeper consumes.
type RouteRule struct {
	// RequiresAuth means anonymous visitors are redirected to login.
	RequiresAuth bool
	// RequiresAdmin means only admin profiles may enter.
	RequiresAdmin bool
	// FunnelExempt means the route is reachable without completing the
	// onboarding funnel.
	FunnelExempt bool
}

// Evaluator classifies routes using OPA or other engines.
type Evaluator interface {
	// RuleFor returns the access rule for the given route path.
	RuleFor(ctx context.Context, route string) (RouteRule, error)
	// HealthCheck verifies the engine can evaluate its default policy.
	HealthCheck(ctx context.Context) error
}
