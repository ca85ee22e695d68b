package handler

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/timesheet-ledger/internal/api/metrics"
	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// AdminHandler handles the manager-only mutations.
type AdminHandler struct {
	service ports.AdminService
	trail   ports.AuditTrailService
}

// NewAdminHandler creates an AdminHandler. trail may be nil when no audit
// store is configured.
func NewAdminHandler(service ports.AdminService, trail ports.AuditTrailService) *AdminHandler {
	return &AdminHandler{service: service, trail: trail}
}

// UpdateRates handles POST /v1/admin/rates.
//
// @Summary      Update pay and billing rates in bulk
// @Description  Keys are "user_<id>" or "customer_<id>". Blank values clear the rate; malformed items are skipped.
// @Tags         admin
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      map[string]string  true  "Rate per key, e.g. {\"user_3\": \"2000\"}"
// @Success      200   {object}  updateRatesResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/admin/rates [post]
func (h *AdminHandler) UpdateRates(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	updates, err := bindRateUpdates(c)
	if err != nil {
		return err
	}

	res, err := h.service.UpdateRates(c.Request().Context(), actor, updates)
	if err != nil {
		return err
	}
	for _, it := range res.Items {
		kind := string(it.Kind)
		if kind == "" {
			kind = "unknown"
		}
		metrics.RateUpdatesTotal.WithLabelValues(kind, string(it.Outcome)).Inc()
	}
	return c.JSON(http.StatusOK, updateRatesResponse{
		Applied: res.Count(ports.RateApplied),
		Cleared: res.Count(ports.RateCleared),
		Skipped: res.Count(ports.RateSkipped),
		Items:   res.Items,
	})
}

// bindRateUpdates reads a JSON object or form fields into key order.
func bindRateUpdates(c echo.Context) ([]ports.RateUpdate, error) {
	values := map[string]string{}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var body map[string]numericText
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		for k, v := range body {
			values[k] = string(v)
		}
	} else {
		form, err := c.FormParams()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		for k, v := range form {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]ports.RateUpdate, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, ports.RateUpdate{Key: k, Value: values[k]})
	}
	return updates, nil
}

// ListUsers handles GET /v1/admin/users.
//
// @Summary      List users with their pay rates
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	users, err := h.service.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// AddUser handles POST /v1/admin/users.
//
// @Summary      Add a worker
// @Description  The new worker signs in with the default credential. Existing usernames are ignored.
// @Tags         admin
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addUserRequest  true  "User"
// @Success      201   {object}  ports.CreateResult
// @Success      200   {object}  ports.CreateResult  "Username already taken or blank; nothing created"
// @Failure      403   {object}  errorResponse
// @Router       /v1/admin/users [post]
func (h *AdminHandler) AddUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req addUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.AddUser(c.Request().Context(), actor, req.Username, req.Rate.String())
	if err != nil {
		return err
	}
	return creationResponse(c, domain.EntityUser, res)
}

// AddCustomer handles POST /v1/admin/customers.
//
// @Summary      Add a customer
// @Description  Existing customer names are ignored.
// @Tags         admin
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addCustomerRequest  true  "Customer"
// @Success      201   {object}  ports.CreateResult
// @Success      200   {object}  ports.CreateResult  "Name already taken or blank; nothing created"
// @Failure      403   {object}  errorResponse
// @Router       /v1/admin/customers [post]
func (h *AdminHandler) AddCustomer(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req addCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.AddCustomer(c.Request().Context(), actor, req.Name, req.Rate.String())
	if err != nil {
		return err
	}
	return creationResponse(c, domain.EntityCustomer, res)
}

func creationResponse(c echo.Context, kind domain.EntityKind, res *ports.CreateResult) error {
	if !res.Created {
		metrics.AdminCreationsTotal.WithLabelValues(string(kind), "ignored").Inc()
		return c.JSON(http.StatusOK, res)
	}
	metrics.AdminCreationsTotal.WithLabelValues(string(kind), "created").Inc()
	return c.JSON(http.StatusCreated, res)
}

// AuditTrail handles GET /v1/admin/audit/:kind/:id.
//
// @Summary      Audit trail of one entity
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        kind  path      string  true  "user, customer or entry"
// @Param        id    path      int     true  "Entity id"
// @Success      200   {array}   domain.AuditEvent
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/admin/audit/{kind}/{id} [get]
func (h *AdminHandler) AuditTrail(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if h.trail == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit trail is not configured")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	events, err := h.trail.Trail(c.Request().Context(), actor, domain.EntityKind(c.Param("kind")), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}
