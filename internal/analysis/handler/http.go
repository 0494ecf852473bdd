// Package handler exposes the analysis polling client over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rank-lens/gateway/internal/analysis"
	"rank-lens/gateway/internal/analysis/engine"
	"rank-lens/gateway/internal/runtime"
	"rank-lens/gateway/internal/server/middleware"
	"rank-lens/gateway/internal/telemetry"
)

// Handler serves GET /v1/analysis, POST /v1/analysis/refetch and
// POST /v1/analysis/submit.
type Handler struct {
	runtimes  *runtime.Manager
	submitter engine.Submitter
	emitter   telemetry.EventEmitter
}

// New returns an analysis handler. emitter may be nil.
func New(runtimes *runtime.Manager, submitter engine.Submitter, emitter telemetry.EventEmitter) *Handler {
	return &Handler{runtimes: runtimes, submitter: submitter, emitter: emitter}
}

// RecordResponse is the JSON view of an analysis record.
type RecordResponse struct {
	ID        string          `json:"id"`
	Domain    string          `json:"domain"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StateResponse is the JSON view of the polling client's state.
type StateResponse struct {
	Domain       string          `json:"domain"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	IsRefreshing bool            `json:"isRefreshing"`
	Record       *RecordResponse `json:"record,omitempty"`
}

// Get requests the caller's resolved domain and returns the client state.
func (h *Handler) Get(c echo.Context) error {
	rt, err := h.callerRuntime(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	rt.Analysis.Request(rt.Domain(ctx))
	return c.JSON(http.StatusOK, toResponse(rt.Analysis.State()))
}

// Refetch issues a fresh fetch immediately, bypassing the debounce window.
func (h *Handler) Refetch(c echo.Context) error {
	rt, err := h.callerRuntime(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	domain := rt.Domain(ctx)
	rt.Analysis.Refetch(domain)

	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		"analysis_fetched", "analysis", middleware.UserID(c), middleware.SessionID(c),
		map[string]any{"domain": domain, "trigger": "refetch"},
	))
	return c.JSON(http.StatusOK, toResponse(rt.Analysis.State()))
}

type submitRequest struct {
	Domain string `json:"domain"`
}

// Submit triggers an analysis run for the caller's domain (or an explicit
// one). Duplicate submissions inside the cooldown window return 429.
func (h *Handler) Submit(c echo.Context) error {
	rt, err := h.callerRuntime(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	domain := req.Domain
	if domain == "" {
		domain = rt.Domain(ctx)
	}
	if domain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no domain to submit")
	}

	if err := h.submitter.Submit(ctx, domain); err != nil {
		if errors.Is(err, engine.ErrCooldown) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "domain submitted too recently")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "analysis trigger failed")
	}

	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		"analysis_submitted", "analysis", middleware.UserID(c), middleware.SessionID(c),
		map[string]any{"domain": domain},
	))
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) callerRuntime(c echo.Context) (*runtime.Runtime, error) {
	token := middleware.Token(c)
	if token == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	rt, err := h.runtimes.Get(c.Request().Context(), token)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session runtime unavailable")
	}
	return rt, nil
}

func toResponse(st analysis.State) StateResponse {
	resp := StateResponse{
		Domain:       st.Domain,
		Status:       string(st.Status),
		Reason:       string(st.Reason),
		IsRefreshing: st.IsRefreshing,
	}
	if st.Record != nil {
		resp.Record = &RecordResponse{
			ID:        st.Record.ID,
			Domain:    st.Record.Domain,
			Status:    string(st.Record.Status),
			Payload:   st.Record.Payload,
			UpdatedAt: st.Record.UpdatedAt,
		}
	}
	return resp
}
