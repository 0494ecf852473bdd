// Package gatekeeper decides, per route request, whether the visitor may see
// the view or must be steered through the login -> organization-setup ->
// domain-setup -> dashboard funnel.
package gatekeeper

// Route paths the funnel steers between.
const (
	RouteLanding           = "/"
	RouteLogin             = "/login"
	RouteSignup            = "/signup"
	RouteDemo              = "/demo"
	RouteAnalysis          = "/analysis"
	RouteHome              = "/home"
	RouteOrganizationSetup = "/organization-setup"
	RouteDomainSetup       = "/domain-setup"
	RouteAdmin             = "/admin"
	RouteUnauthorized      = "/unauthorized"
)

// Action is the kind of decision made for a route request.
type Action string

const (
	// ActionWait means identity is still resolving; no routing decision
	// may be made and the caller renders a neutral waiting state.
	ActionWait Action = "wait"

	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Decision is the terminal outcome for one route request.
type Decision struct {
	Action Action
	// Target is the redirect destination; set only for ActionRedirect.
	Target string
	// ReturnTo carries the originally requested route on a login redirect
	// so the visitor can be returned after signing in.
	ReturnTo string
	// Reason is a short machine tag saying which clause decided.
	Reason string
}

// Allowed reports whether the decision lets the request through.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }

func wait(reason string) Decision {
	return Decision{Action: ActionWait, Reason: reason}
}

func allow(reason string) Decision {
	return Decision{Action: ActionAllow, Reason: reason}
}

func redirect(target, reason string) Decision {
	return Decision{Action: ActionRedirect, Target: target, Reason: reason}
}
