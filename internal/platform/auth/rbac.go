package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects requests whose actor holds none
// of the given roles. Administrators always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c.Request().Context())
			if actor.Role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if actor.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// CanActOnDoctor reports whether the actor may operate on the given doctor's
// queue or calendar. Doctors are restricted to their own id; everyone else is
// decided by route-level role guards.
func CanActOnDoctor(ctx context.Context, doctorID int64) bool {
	actor := ActorFromContext(ctx)
	if actor.Role == RoleDoctor {
		return actor.ID == doctorID
	}
	return true
}
