package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/sirpyerre/timesheet-ledger/docs"
	"github.com/sirpyerre/timesheet-ledger/internal/api/handler"
	"github.com/sirpyerre/timesheet-ledger/internal/api/middleware"
	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// Deps are the services the router exposes. Trail may be nil when no audit
// store is configured; Checks lists the readiness probes by dependency name.
type Deps struct {
	Log     zerolog.Logger
	Tokens  middleware.TokenParser
	Auth    ports.AuthService
	Entries ports.EntryService
	Admin   ports.AdminService
	Trail   ports.AuditTrailService
	Checks  map[string]handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("ledger"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	entryHandler := handler.NewEntryHandler(d.Entries)
	adminHandler := handler.NewAdminHandler(d.Admin, d.Trail)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks)

	// --- Public routes ---
	e.POST("/auth/login", authHandler.Login)

	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", middleware.Auth(d.Tokens))

	v1.GET("/dashboard", entryHandler.Dashboard)
	v1.GET("/customers", entryHandler.Customers)

	v1.POST("/entries", entryHandler.Submit, middleware.Require(domain.CapSubmit))
	v1.GET("/entries", entryHandler.List)
	v1.PUT("/entries/:id", entryHandler.Edit)
	v1.DELETE("/entries/:id", entryHandler.Delete)

	v1.GET("/reports", entryHandler.Report, middleware.Require(domain.CapViewAll))

	admin := v1.Group("/admin", middleware.Require(domain.CapAdminister))
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.AddUser)
	admin.POST("/customers", adminHandler.AddCustomer)
	admin.POST("/rates", adminHandler.UpdateRates)
	admin.GET("/audit/:kind/:id", adminHandler.AuditTrail)

	return e
}

// requestLogger writes one zerolog line per request, tagged with the actor
// once Auth has run.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev = ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID)
			if actor, ok := middleware.ActorFrom(c); ok {
				ev = ev.Int64("actor_id", actor.ID)
			}
			ev.Msg("request")
			return nil
		},
	})
}
