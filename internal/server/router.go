// Package server assembles the echo HTTP surface of the gateway.
package server

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	analysishandler "rank-lens/gateway/internal/analysis/handler"
	gatekeeperhandler "rank-lens/gateway/internal/gatekeeper/handler"
	"rank-lens/gateway/internal/identity/devidp"
	"rank-lens/gateway/internal/platform/rbac"
	profilehandler "rank-lens/gateway/internal/profile/handler"
	profilerepo "rank-lens/gateway/internal/profile/repository"
	"rank-lens/gateway/internal/server/middleware"
	sessionhandler "rank-lens/gateway/internal/session/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	ServiceName string
	Validator   middleware.TokenValidator
	DB          *sql.DB

	Decision *gatekeeperhandler.Handler
	Session  *sessionhandler.Handler
	Analysis *analysishandler.Handler
	Profile  *profilehandler.Handler
	Profiles profilerepo.Repository

	// PolicyHealth is the gatekeeper engine's self-check, nil to skip.
	PolicyHealth func(ctx context.Context) error

	// DevSignIn is mounted at POST /dev/signin when non-nil.
	DevSignIn *devidp.SignInHandler
}

// New builds the echo instance with middleware and routes mounted.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(d.ServiceName))
	e.Use(middleware.BearerAuth(d.Validator))

	e.GET("/healthz", healthz(d))

	v1 := e.Group("/v1")
	v1.GET("/decision", d.Decision.Decide)
	v1.GET("/session", d.Session.Get)
	v1.POST("/signout", d.Session.SignOut)
	v1.GET("/analysis", d.Analysis.Get)
	v1.POST("/analysis/refetch", d.Analysis.Refetch)
	v1.POST("/analysis/submit", d.Analysis.Submit)

	admin := v1.Group("/admin", rbac.RequireAdmin(d.Profiles))
	admin.PUT("/profiles/:id/role", d.Profile.UpdateRole)

	if d.DevSignIn != nil {
		e.POST("/dev/signin", d.DevSignIn.SignIn)
	}

	return e
}

func healthz(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if d.DB != nil {
			if err := d.DB.PingContext(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy", "reason": "database unreachable",
				})
			}
		}
		if d.PolicyHealth != nil {
			if err := d.PolicyHealth(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy", "reason": "policy engine failed self-check",
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
