package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"rank-lens/gateway/internal/gatekeeper/repository"
)

const defaultPolicyPackage = "ranklens.routes"

// Default Rego policy matching the built-in route classification. Deployments
// can replace it with enabled route_policies rows.
const defaultRegoPolicy = `package ranklens.routes

default requires_auth = false
default requires_admin = false
default funnel_exempt = false

protected := {"/home", "/organization-setup", "/domain-setup", "/admin"}

exempt := {"/", "/login", "/signup", "/demo", "/analysis", "/organization-setup", "/domain-setup"}

requires_auth if {
	input.route in protected
}

requires_admin if {
	input.route == "/admin"
}

funnel_exempt if {
	input.route in exempt
}
`

// OPAEvaluator classifies routes using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based route evaluator. policyRepo may be nil;
// the compiled-in default policy is then the only source of rules.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query("data."+defaultPolicyPackage+".requires_auth"),
		rego.Compiler(compiler),
		rego.Input(map[string]interface{}{"route": "/home"}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// RuleFor classifies route using the enabled stored policies, falling back to
// the compiled-in default policy. Evaluation failures are logged and answered
// with DefaultRule so a broken override can never wedge routing.
func (e *OPAEvaluator) RuleFor(ctx context.Context, route string) (RouteRule, error) {
	var policies []string
	if e.policyRepo != nil {
		stored, err := e.policyRepo.ListEnabled(ctx)
		if err != nil {
			log.Printf("gatekeeper: failed to load route policies: %v", err)
		} else {
			for _, p := range stored {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	rule, err := e.evaluatePolicies(ctx, policies, map[string]interface{}{"route": route})
	if err != nil {
		log.Printf("gatekeeper: policy evaluation failed: %v, using defaults", err)
		return DefaultRule(route), nil
	}
	return rule, nil
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (RouteRule, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return RouteRule{}, fmt.Errorf("compile policies: %w", err)
	}

	var rule RouteRule
	for _, q := range []struct {
		name string
		dst  *bool
	}{
		{"requires_auth", &rule.RequiresAuth},
		{"requires_admin", &rule.RequiresAdmin},
		{"funnel_exempt", &rule.FunnelExempt},
	} {
		query := rego.New(
			rego.Query("data."+defaultPolicyPackage+"."+q.name),
			rego.Compiler(compiler),
			rego.Input(input),
		)
		rs, err := query.Eval(ctx)
		if err != nil {
			return RouteRule{}, fmt.Errorf("eval %s: %w", q.name, err)
		}
		if len(rs) > 0 && len(rs[0].Expressions) > 0 {
			if v, ok := rs[0].Expressions[0].Value.(bool); ok {
				*q.dst = v
			}
		}
	}
	return rule, nil
}

// Static fallback mirroring the default Rego policy, used when evaluation fails.
var (
	defaultProtected = map[string]bool{
		"/home":               true,
		"/organization-setup": true,
		"/domain-setup":       true,
		"/admin":              true,
	}
	defaultExempt = map[string]bool{
		"/":                   true,
		"/login":              true,
		"/signup":             true,
		"/demo":               true,
		"/analysis":           true,
		"/organization-setup": true,
		"/domain-setup":       true,
	}
)

// DefaultRule returns the compiled-in classification for route without
// consulting OPA.
func DefaultRule(route string) RouteRule {
	return RouteRule{
		RequiresAuth:  defaultProtected[route],
		RequiresAdmin: route == "/admin",
		FunnelExempt:  defaultExempt[route],
	}
}
