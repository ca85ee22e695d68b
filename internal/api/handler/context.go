package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/timesheet-ledger/internal/api/middleware"
	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// ctxActor extracts the actor injected by the Auth middleware. A missing or
// unusable actor means the route was mounted without Auth; reject with 401.
func ctxActor(c echo.Context) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}
