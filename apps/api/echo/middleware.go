package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ripoti/core/user"
)

// roleMiddleware restricts a route to the given roles. It is the only
// place handlers gate on roles; the decision itself lives in
// user.RoleAllowed (empty or unknown roles are always denied).
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.RoleAllowed(claims.Role, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
