package middleware

import (
	"net/http"

	"flexvault/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後に置く。principalのroleが許可リストにあるか確認します。
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("access token required"))
			}

			if !p.HasRole(roles...) {
				return c.JSON(http.StatusForbidden, errorJSON("insufficient permissions"))
			}

			return next(c)
		}
	}
}
