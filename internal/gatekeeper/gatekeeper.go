package gatekeeper

import (
	"context"
	"log"

	"rank-lens/gateway/internal/flags"
	"rank-lens/gateway/internal/gatekeeper/engine"
	"rank-lens/gateway/internal/organization/resolver"
	"rank-lens/gateway/internal/session"
	"rank-lens/gateway/internal/telemetry"
)

// Gatekeeper assembles a consistent snapshot per request and runs the decision
// procedure over it. One Gatekeeper serves one client's session runtime.
type Gatekeeper struct {
	sessions *session.Store
	resolver *resolver.Resolver
	engine   engine.Evaluator
	flags    flags.Store
	emitter  telemetry.EventEmitter
}

// New returns a Gatekeeper reading identity from sessions. flagsStore and
// emitter may be nil; hints then read as absent and no events are emitted.
func New(sessions *session.Store, res *resolver.Resolver, eval engine.Evaluator, flagsStore flags.Store, emitter telemetry.EventEmitter) *Gatekeeper {
	return &Gatekeeper{
		sessions: sessions,
		resolver: res,
		engine:   eval,
		flags:    flagsStore,
		emitter:  emitter,
	}
}

// Decide evaluates route for the current visitor. It always resolves to a
// decision: downstream fetch failures degrade the snapshot (absent domain,
// absent hints, default route rule) instead of blocking.
func (g *Gatekeeper) Decide(ctx context.Context, route string) Decision {
	snap := g.sessions.EnsureProfile(ctx)

	in := Input{State: snap.State, Profile: snap.Profile}

	if snap.Profile != nil {
		res, err := g.resolver.Resolve(ctx, snap.Profile)
		if err != nil {
			log.Printf("gatekeeper: domain resolution failed for user %s: %v", snap.Profile.ID, err)
		} else {
			in.Domain = res.Domain
		}
		if g.flags != nil {
			in.Hints = flags.ReadHints(ctx, g.flags, snap.Profile.ID)
		}
	}

	rule, err := g.engine.RuleFor(ctx, route)
	if err != nil {
		log.Printf("gatekeeper: route classification failed for %s: %v", route, err)
		rule = engine.DefaultRule(route)
	}

	d := Evaluate(route, rule, in)

	// The raw token never goes into telemetry; events are user-scoped only.
	var userID string
	if snap.Session != nil {
		userID = snap.Session.UserID
	}
	telemetry.EmitAsync(g.emitter, ctx, telemetry.NewEvent(
		"decision_evaluated", "gatekeeper", userID, "",
		map[string]any{
			"route":  route,
			"action": string(d.Action),
			"target": d.Target,
			"reason": d.Reason,
		},
	))

	return d
}
