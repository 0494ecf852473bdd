package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"rank-lens/gateway/internal/gatekeeper/domain"
)

type fakePolicyRepo struct {
	policies []*domain.RoutePolicy
	err      error
}

func (f *fakePolicyRepo) GetByID(context.Context, string) (*domain.RoutePolicy, error) {
	return nil, nil
}

func (f *fakePolicyRepo) ListEnabled(context.Context) ([]*domain.RoutePolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies, nil
}

func (f *fakePolicyRepo) Create(context.Context, *domain.RoutePolicy) error { return nil }
func (f *fakePolicyRepo) Update(context.Context, *domain.RoutePolicy) error { return nil }

func TestHealthCheck(t *testing.T) {
	e := NewOPAEvaluator(nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestDefaultPolicyClassification(t *testing.T) {
	e := NewOPAEvaluator(nil)
	cases := []struct {
		route string
		want  RouteRule
	}{
		{"/", RouteRule{FunnelExempt: true}},
		{"/login", RouteRule{FunnelExempt: true}},
		{"/signup", RouteRule{FunnelExempt: true}},
		{"/demo", RouteRule{FunnelExempt: true}},
		{"/analysis", RouteRule{FunnelExempt: true}},
		{"/home", RouteRule{RequiresAuth: true}},
		{"/organization-setup", RouteRule{RequiresAuth: true, FunnelExempt: true}},
		{"/domain-setup", RouteRule{RequiresAuth: true, FunnelExempt: true}},
		{"/admin", RouteRule{RequiresAuth: true, RequiresAdmin: true}},
		{"/never-registered", RouteRule{}},
	}
	for _, tc := range cases {
		rule, err := e.RuleFor(context.Background(), tc.route)
		if err != nil {
			t.Fatalf("RuleFor(%s): %v", tc.route, err)
		}
		if rule != tc.want {
			t.Errorf("RuleFor(%s) = %+v, want %+v", tc.route, rule, tc.want)
		}
	}
}

func TestDefaultRuleMirrorsRegoPolicy(t *testing.T) {
	e := NewOPAEvaluator(nil)
	for _, route := range []string{"/", "/login", "/home", "/admin", "/domain-setup", "/unknown"} {
		rule, err := e.RuleFor(context.Background(), route)
		if err != nil {
			t.Fatalf("RuleFor(%s): %v", route, err)
		}
		if fallback := DefaultRule(route); rule != fallback {
			t.Errorf("DefaultRule(%s) = %+v diverges from rego result %+v", route, fallback, rule)
		}
	}
}

func TestStoredPolicyOverride(t *testing.T) {
	// Override locks every route behind auth.
	repo := &fakePolicyRepo{policies: []*domain.RoutePolicy{{
		ID:      "p1",
		Enabled: true,
		Rules: `package ranklens.routes

default requires_auth = true
default requires_admin = false
default funnel_exempt = false
`,
		CreatedAt: time.Now(),
	}}}
	e := NewOPAEvaluator(repo)

	rule, err := e.RuleFor(context.Background(), "/demo")
	if err != nil {
		t.Fatalf("RuleFor: %v", err)
	}
	if !rule.RequiresAuth {
		t.Fatalf("expected override to require auth for /demo, got %+v", rule)
	}
}

func TestBrokenStoredPolicyFallsBack(t *testing.T) {
	repo := &fakePolicyRepo{policies: []*domain.RoutePolicy{{
		ID:        "p1",
		Enabled:   true,
		Rules:     "package ranklens.routes\n\nthis is not rego",
		CreatedAt: time.Now(),
	}}}
	e := NewOPAEvaluator(repo)

	rule, err := e.RuleFor(context.Background(), "/home")
	if err != nil {
		t.Fatalf("RuleFor: %v", err)
	}
	if rule != DefaultRule("/home") {
		t.Fatalf("expected fallback rule for /home, got %+v", rule)
	}
}

func TestPolicyRepoErrorUsesDefaultPolicy(t *testing.T) {
	repo := &fakePolicyRepo{err: errors.New("db down")}
	e := NewOPAEvaluator(repo)

	rule, err := e.RuleFor(context.Background(), "/home")
	if err != nil {
		t.Fatalf("RuleFor: %v", err)
	}
	if !rule.RequiresAuth {
		t.Fatalf("expected default policy when repo fails, got %+v", rule)
	}
}
