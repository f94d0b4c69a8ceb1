package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/personar/profile-service/internal/core/domain"
)

// TokenValidator checks a bearer token and returns the claims it carries.
type TokenValidator interface {
	ValidateToken(token string) (domain.Claims, error)
}

// Auth validates the bearer token and injects the caller email into context.
func Auth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return unauthorized(c, "invalid authorization header")
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil || claims.Email == "" {
				return unauthorized(c, "could not validate credentials")
			}

			c.Set("email", claims.Email)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
