// Package handler exposes the admin profile surface over HTTP.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	profiledomain "rank-lens/gateway/internal/profile/domain"
	"rank-lens/gateway/internal/profile/repository"
)

// Handler serves PUT /v1/admin/profiles/:id/role. Admin access is enforced by
// the rbac middleware on the route group, not here.
type Handler struct {
	profiles repository.Repository
}

// New returns a profile handler backed by profiles.
func New(profiles repository.Repository) *Handler {
	return &Handler{profiles: profiles}
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole sets the role for the profile in the path.
func (h *Handler) UpdateRole(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "profile id is required")
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	role := profiledomain.Role(req.Role)
	if !role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be client or admin")
	}

	ctx := c.Request().Context()
	p, err := h.profiles.GetByID(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err := h.profiles.UpdateRole(ctx, id, role); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "role update failed")
	}
	return c.NoContent(http.StatusNoContent)
}
