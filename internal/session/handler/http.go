// Package handler exposes the session snapshot and sign-out over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"rank-lens/gateway/internal/runtime"
	"rank-lens/gateway/internal/server/middleware"
	"rank-lens/gateway/internal/session"
	"rank-lens/gateway/internal/telemetry"
)

// Handler serves GET /v1/session and POST /v1/signout.
type Handler struct {
	runtimes *runtime.Manager
	emitter  telemetry.EventEmitter
}

// New returns a session handler. emitter may be nil.
func New(runtimes *runtime.Manager, emitter telemetry.EventEmitter) *Handler {
	return &Handler{runtimes: runtimes, emitter: emitter}
}

// ProfileResponse is the JSON view of the caller's profile.
type ProfileResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FullName       string  `json:"fullName,omitempty"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organizationId,omitempty"`
}

// SessionResponse is the JSON view of the session snapshot.
type SessionResponse struct {
	State     string           `json:"state"`
	UserID    string           `json:"userId,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
}

// Get returns the caller's session state and profile.
func (h *Handler) Get(c echo.Context) error {
	token := middleware.Token(c)
	if token == "" {
		return c.JSON(http.StatusOK, SessionResponse{State: string(session.StateAnonymous)})
	}
	ctx := c.Request().Context()

	rt, err := h.runtimes.Get(ctx, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session runtime unavailable")
	}
	snap := rt.Sessions.EnsureProfile(ctx)

	resp := SessionResponse{State: string(snap.State)}
	if snap.Session != nil {
		resp.UserID = snap.Session.UserID
		if !snap.Session.ExpiresAt.IsZero() {
			exp := snap.Session.ExpiresAt
			resp.ExpiresAt = &exp
		}
	}
	if snap.Profile != nil {
		resp.Profile = &ProfileResponse{
			ID:             snap.Profile.ID,
			Email:          snap.Profile.Email,
			FullName:       snap.Profile.FullName,
			Role:           string(snap.Profile.Role),
			OrganizationID: snap.Profile.OrganizationID,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// SignOut revokes the caller's session and tears down its runtime.
func (h *Handler) SignOut(c echo.Context) error {
	token := middleware.Token(c)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	ctx := c.Request().Context()

	rt, err := h.runtimes.Get(ctx, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session runtime unavailable")
	}
	userID := middleware.UserID(c)
	if err := rt.Sessions.SignOut(ctx); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "sign out failed")
	}
	h.runtimes.Evict(token)

	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		"signed_out", "session", userID, middleware.SessionID(c), nil,
	))
	return c.NoContent(http.StatusNoContent)
}
