package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/timesheet-ledger/internal/api/middleware"
	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// testErrorHandler maps domain errors the way the api error handler does.
func testErrorHandler(err error, c echo.Context) {
	var he *echo.HTTPError
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &he):
		code = he.Code
	case errors.Is(err, domain.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	}
	msg := err.Error()
	if he != nil {
		msg, _ = he.Message.(string)
	}
	_ = c.JSON(code, errorResponse{Error: msg})
}

func withActor(c echo.Context, actor domain.Actor) echo.Context {
	c.Set(middleware.ActorKey, actor)
	return c
}

var (
	testWorker  = domain.Actor{ID: 2, Username: "wes", Role: domain.RoleWorker}
	testManager = domain.Actor{ID: 1, Username: "boss", Role: domain.RoleManager}
)
