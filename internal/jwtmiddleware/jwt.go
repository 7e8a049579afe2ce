package jwtmiddleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/SecondList/EcommerceAPI/internal/tokens"
)

// BearerAuth validates the Authorization header and puts the caller's
// identity into the echo context. Handlers pass that identity into the core
// services explicitly; nothing downstream reads ambient request state.
func BearerAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := tokens.AccessClaimsFromToken(tokenStr, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set("userID", claims.UserID)
			c.Set("email", claims.Email)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

func CallerID(c echo.Context) (uint, bool) {
	id, ok := c.Get("userID").(uint)
	return id, ok
}

func CallerRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}
