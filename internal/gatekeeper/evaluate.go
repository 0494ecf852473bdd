package gatekeeper

import (
	"rank-lens/gateway/internal/flags"
	"rank-lens/gateway/internal/gatekeeper/engine"
	profiledomain "rank-lens/gateway/internal/profile/domain"
	"rank-lens/gateway/internal/session"
)

// Input is the consistent snapshot the decision procedure runs against. It is
// assembled once per request; the procedure itself performs no I/O.
type Input struct {
	State   session.State
	Profile *profiledomain.Profile
	// Domain is the resolved organization domain, "" when absent.
	Domain string
	Hints  flags.Hints
}

// Evaluate runs the decision procedure for route against a settled snapshot.
// It is a pure function: the same input always yields the same decision, so
// re-evaluation can never oscillate between two redirect targets.
func Evaluate(route string, rule engine.RouteRule, in Input) Decision {
	// Identity still resolving: no decision.
	if in.State == session.StateLoading {
		return wait("awaiting_session")
	}

	if in.State == session.StateAnonymous {
		if rule.RequiresAuth {
			d := redirect(RouteLogin, "auth_required")
			d.ReturnTo = route
			return d
		}
		return allow("public")
	}

	if rule.RequiresAdmin && !in.Profile.IsAdmin() {
		return redirect(RouteUnauthorized, "admin_required")
	}

	// Admins bypass all onboarding-funnel checks for every route.
	if in.Profile.IsAdmin() {
		return allow("admin_bypass")
	}

	hasOrganization := in.Profile.HasOrganization()
	hasDomain := hasOrganization && in.Domain != ""

	if rule.FunnelExempt {
		// Block re-entry into domain setup while a just-made submission
		// is still processing, to avoid a duplicate submission.
		if route == RouteDomainSetup && in.Hints.DomainSetupInProgress {
			return redirect(RouteHome, "domain_setup_in_progress")
		}
		return allow("funnel_exempt")
	}

	if !hasOrganization {
		return redirect(RouteOrganizationSetup, "no_organization")
	}
	if !hasDomain {
		// Anti-oscillation: when the client says setup just finished but
		// the resolver has not caught up, trust the hints at Home rather
		// than bouncing back into domain setup.
		if route == RouteHome && in.Hints.Any() {
			return allow("setup_hint")
		}
		return redirect(RouteDomainSetup, "no_domain")
	}
	if route == RouteHome {
		return allow("onboarded")
	}
	return redirect(RouteHome, "funnel_complete")
}
