package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// ActorKey is the echo context key holding the authenticated domain.Actor.
const ActorKey = "actor"

// TokenParser verifies a bearer token and returns the actor it names.
type TokenParser interface {
	Parse(raw string) (domain.Actor, error)
}

// Auth validates the bearer token and injects the actor into context.
func Auth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			actor, err := parser.Parse(strings.TrimSpace(parts[1]))
			if err != nil || !actor.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ActorKey, actor)

			return next(c)
		}
	}
}

// ActorFrom returns the actor injected by Auth, if any.
func ActorFrom(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Get(ActorKey).(domain.Actor)
	return actor, ok && actor.Authenticated()
}
