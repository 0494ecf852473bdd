// Package handler exposes the gatekeeper decision over HTTP.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rank-lens/gateway/internal/gatekeeper"
	"rank-lens/gateway/internal/gatekeeper/engine"
	"rank-lens/gateway/internal/runtime"
	"rank-lens/gateway/internal/server/middleware"
	"rank-lens/gateway/internal/session"
)

// Handler serves GET /v1/decision.
type Handler struct {
	runtimes *runtime.Manager
	engine   engine.Evaluator
}

// New returns a decision handler. Anonymous requests are evaluated statelessly
// against eval; authenticated ones go through their session runtime.
func New(runtimes *runtime.Manager, eval engine.Evaluator) *Handler {
	return &Handler{runtimes: runtimes, engine: eval}
}

// DecisionResponse is the JSON shape of a gatekeeper decision.
type DecisionResponse struct {
	Status   string `json:"status"`
	Target   string `json:"target,omitempty"`
	ReturnTo string `json:"returnTo,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

var actionStatus = map[gatekeeper.Action]string{
	gatekeeper.ActionWait:     "pending",
	gatekeeper.ActionAllow:    "allow",
	gatekeeper.ActionRedirect: "redirect",
}

// Decide evaluates the route in the "route" query parameter for the caller.
func (h *Handler) Decide(c echo.Context) error {
	route := c.QueryParam("route")
	if route == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "route query parameter is required")
	}
	ctx := c.Request().Context()

	token := middleware.Token(c)
	if token == "" {
		rule, err := h.engine.RuleFor(ctx, route)
		if err != nil {
			rule = engine.DefaultRule(route)
		}
		d := gatekeeper.Evaluate(route, rule, gatekeeper.Input{State: session.StateAnonymous})
		return c.JSON(http.StatusOK, toResponse(d))
	}

	rt, err := h.runtimes.Get(ctx, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session runtime unavailable")
	}
	d := rt.Gatekeeper.Decide(ctx, route)

	// Landing on the dashboard activates the analysis client for the
	// resolved domain so the record is warming up while the view loads.
	if d.Allowed() && route == gatekeeper.RouteHome {
		rt.Analysis.Request(rt.Domain(ctx))
	}
	return c.JSON(http.StatusOK, toResponse(d))
}

func toResponse(d gatekeeper.Decision) DecisionResponse {
	return DecisionResponse{
		Status:   actionStatus[d.Action],
		Target:   d.Target,
		ReturnTo: d.ReturnTo,
		Reason:   d.Reason,
	}
}
