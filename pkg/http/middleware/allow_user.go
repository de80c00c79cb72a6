package httpmiddleware

import (
	"net/http"

	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the verified profile has one of roles.
func RequireRole(roles ...profile.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, err := profile.UseProfile(ctx); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			if _, err := profile.UseRoleProfile(ctx, roles...); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}
