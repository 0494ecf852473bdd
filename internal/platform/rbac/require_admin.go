// Package rbac enforces role checks on admin-only HTTP routes.
package rbac

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	profiledomain "rank-lens/gateway/internal/profile/domain"
	"rank-lens/gateway/internal/server/middleware"
)

// ProfileGetter is the profile read needed for role checks.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*profiledomain.Profile, error)
}

// RequireAdmin rejects requests whose caller is not an authenticated admin.
// Anonymous callers get 401, non-admin callers 403.
func RequireAdmin(profiles ProfileGetter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := middleware.UserID(c)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			p, err := profiles.GetByID(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
			}
			if !p.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
