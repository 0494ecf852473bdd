package gatekeeper

import (
	"testing"

	"rank-lens/gateway/internal/flags"
	"rank-lens/gateway/internal/gatekeeper/engine"
	profiledomain "rank-lens/gateway/internal/profile/domain"
	"rank-lens/gateway/internal/session"
)

func clientProfile(orgID string) *profiledomain.Profile {
	p := &profiledomain.Profile{ID: "user-1", Email: "user@example.com", Role: profiledomain.RoleClient}
	if orgID != "" {
		p.OrganizationID = &orgID
	}
	return p
}

func adminProfile() *profiledomain.Profile {
	return &profiledomain.Profile{ID: "admin-1", Email: "admin@example.com", Role: profiledomain.RoleAdmin}
}

func rule(route string) engine.RouteRule {
	return engine.DefaultRule(route)
}

func TestLoadingMakesNoDecision(t *testing.T) {
	d := Evaluate(RouteHome, rule(RouteHome), Input{State: session.StateLoading})
	if d.Action != ActionWait {
		t.Fatalf("expected wait while identity resolves, got %+v", d)
	}
}

func TestAnonymousProtectedRedirectsToLogin(t *testing.T) {
	for _, route := range []string{RouteHome, RouteAdmin, RouteDomainSetup} {
		d := Evaluate(route, rule(route), Input{State: session.StateAnonymous})
		if d.Action != ActionRedirect || d.Target != RouteLogin {
			t.Fatalf("expected login redirect for %s, got %+v", route, d)
		}
		if d.ReturnTo != route {
			t.Fatalf("expected return-to %s, got %q", route, d.ReturnTo)
		}
	}
}

func TestAnonymousPublicRoutesAllowed(t *testing.T) {
	for _, route := range []string{RouteLanding, RouteLogin, RouteSignup, RouteDemo, RouteAnalysis} {
		d := Evaluate(route, rule(route), Input{State: session.StateAnonymous})
		if !d.Allowed() {
			t.Fatalf("expected allow for public route %s, got %+v", route, d)
		}
	}
}

func TestNonAdminOnAdminRoute(t *testing.T) {
	in := Input{State: session.StateAuthenticated, Profile: clientProfile("org-1")}
	d := Evaluate(RouteAdmin, rule(RouteAdmin), in)
	if d.Action != ActionRedirect || d.Target != RouteUnauthorized {
		t.Fatalf("expected unauthorized redirect, got %+v", d)
	}
}

func TestAdminBypassesFunnelEverywhere(t *testing.T) {
	in := Input{State: session.StateAuthenticated, Profile: adminProfile()}
	for _, route := range []string{RouteHome, RouteAdmin, RouteDomainSetup, RouteOrganizationSetup, "/anything"} {
		if d := Evaluate(route, rule(route), in); !d.Allowed() {
			t.Fatalf("expected admin allow for %s regardless of org state, got %+v", route, d)
		}
	}
}

func TestNoOrganizationRedirectsToOrgSetup(t *testing.T) {
	in := Input{State: session.StateAuthenticated, Profile: clientProfile("")}
	d := Evaluate(RouteHome, rule(RouteHome), in)
	if d.Action != ActionRedirect || d.Target != RouteOrganizationSetup {
		t.Fatalf("expected organization-setup redirect, got %+v", d)
	}
}

func TestNoDomainRedirectsToDomainSetup(t *testing.T) {
	in := Input{State: session.StateAuthenticated, Profile: clientProfile("org-1")}
	d := Evaluate(RouteHome, rule(RouteHome), in)
	if d.Action != ActionRedirect || d.Target != RouteDomainSetup {
		t.Fatalf("expected domain-setup redirect, got %+v", d)
	}
}

func TestSetupHintAllowsHomeWhileResolverLags(t *testing.T) {
	in := Input{
		State:   session.StateAuthenticated,
		Profile: clientProfile("org-1"),
		Hints:   flags.Hints{DomainSetupInProgress: true},
	}
	d := Evaluate(RouteHome, rule(RouteHome), in)
	if !d.Allowed() {
		t.Fatalf("expected allow at home with setup hint, got %+v", d)
	}

	// Each hint alone is sufficient.
	for _, h := range []flags.Hints{
		{LastSavedDomain: "example.com"},
		{LastSavedWebsiteURL: "https://example.com"},
	} {
		in.Hints = h
		if d := Evaluate(RouteHome, rule(RouteHome), in); !d.Allowed() {
			t.Fatalf("expected allow for hint %+v, got %+v", h, d)
		}
	}
}

func TestSetupHintOnlyAppliesAtHome(t *testing.T) {
	in := Input{
		State:   session.StateAuthenticated,
		Profile: clientProfile("org-1"),
		Hints:   flags.Hints{DomainSetupInProgress: true},
	}
	d := Evaluate("/reports", rule("/reports"), in)
	if d.Action != ActionRedirect || d.Target != RouteDomainSetup {
		t.Fatalf("expected domain-setup redirect off home, got %+v", d)
	}
}

func TestDomainSetupReentryBlockedWhileProcessing(t *testing.T) {
	in := Input{
		State:   session.StateAuthenticated,
		Profile: clientProfile("org-1"),
		Hints:   flags.Hints{DomainSetupInProgress: true},
	}
	d := Evaluate(RouteDomainSetup, rule(RouteDomainSetup), in)
	if d.Action != ActionRedirect || d.Target != RouteHome {
		t.Fatalf("expected home redirect away from domain setup, got %+v", d)
	}

	// Without the in-progress hint, the setup screen stays reachable.
	in.Hints = flags.Hints{}
	if d := Evaluate(RouteDomainSetup, rule(RouteDomainSetup), in); !d.Allowed() {
		t.Fatalf("expected allow into domain setup, got %+v", d)
	}
}

func TestOnboardedUserSteeredToHome(t *testing.T) {
	in := Input{
		State:   session.StateAuthenticated,
		Profile: clientProfile("org-1"),
		Domain:  "example.com",
	}
	if d := Evaluate(RouteHome, rule(RouteHome), in); !d.Allowed() {
		t.Fatalf("expected allow at home when onboarded, got %+v", d)
	}
	d := Evaluate("/reports", rule("/reports"), in)
	if d.Action != ActionRedirect || d.Target != RouteHome {
		t.Fatalf("expected home redirect for off-funnel route, got %+v", d)
	}
}

func TestFunnelExemptRoutesAllowedMidFunnel(t *testing.T) {
	in := Input{State: session.StateAuthenticated, Profile: clientProfile("org-1")}
	for _, route := range []string{RouteLanding, RouteDemo, RouteAnalysis, RouteOrganizationSetup, RouteDomainSetup} {
		if d := Evaluate(route, rule(route), in); !d.Allowed() {
			t.Fatalf("expected allow for exempt route %s, got %+v", route, d)
		}
	}
}

func TestDecisionIsIdempotent(t *testing.T) {
	inputs := []Input{
		{State: session.StateAnonymous},
		{State: session.StateAuthenticated, Profile: clientProfile("")},
		{State: session.StateAuthenticated, Profile: clientProfile("org-1")},
		{State: session.StateAuthenticated, Profile: clientProfile("org-1"), Hints: flags.Hints{DomainSetupInProgress: true}},
		{State: session.StateAuthenticated, Profile: clientProfile("org-1"), Domain: "example.com"},
		{State: session.StateAuthenticated, Profile: adminProfile()},
	}
	routes := []string{RouteLanding, RouteLogin, RouteHome, RouteDomainSetup, RouteOrganizationSetup, RouteAdmin, "/reports"}

	for _, in := range inputs {
		for _, route := range routes {
			first := Evaluate(route, rule(route), in)
			for i := 0; i < 3; i++ {
				if again := Evaluate(route, rule(route), in); again != first {
					t.Fatalf("decision for %s not stable: %+v then %+v", route, first, again)
				}
			}
			// A redirect target re-evaluated against the same state must
			// not bounce back to the original route.
			if first.Action == ActionRedirect {
				next := Evaluate(first.Target, rule(first.Target), in)
				if next.Action == ActionRedirect && next.Target == route {
					t.Fatalf("oscillation between %s and %s for input %+v", route, first.Target, in)
				}
			}
		}
	}
}
