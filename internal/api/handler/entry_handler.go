package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sirpyerre/timesheet-ledger/internal/api/metrics"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// EntryHandler handles HTTP requests for time-log entries and ledger views.
type EntryHandler struct {
	service ports.EntryService
}

func NewEntryHandler(service ports.EntryService) *EntryHandler {
	return &EntryHandler{service: service}
}

// Dashboard handles GET /v1/dashboard.
//
// @Summary      Landing view for the current actor
// @Description  Workers get the customer list and their most recent entries; managers get the full ledger.
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.Dashboard
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/dashboard [get]
func (h *EntryHandler) Dashboard(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues("dashboard"))
	defer timer.ObserveDuration()

	d, err := h.service.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Customers handles GET /v1/customers.
//
// @Summary      List customers
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Customer
// @Failure      401  {object}  errorResponse
// @Router       /v1/customers [get]
func (h *EntryHandler) Customers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	customers, err := h.service.Customers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customers)
}

// Submit handles POST /v1/entries.
//
// @Summary      Submit hours
// @Tags         entries
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      submitEntryRequest  true   "Entry"
// @Success      201              {object}  submitEntryResponse
// @Success      200              {object}  submitEntryResponse  "Replay of an earlier submission"
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/entries [post]
func (h *EntryHandler) Submit(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req submitEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.Submit(c.Request().Context(), actor, ports.SubmitEntryInput{
		CustomerID:     req.CustomerID,
		Hours:          req.Hours.String(),
		Description:    req.Description,
		WorkDate:       req.WorkDate,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.AlreadyExisted {
		status = http.StatusOK
	} else {
		metrics.EntriesSubmittedTotal.WithLabelValues(string(actor.Role)).Inc()
	}
	return c.JSON(status, submitEntryResponse{
		ID:             res.EntryID,
		AlreadyExisted: res.AlreadyExisted,
		Self:           "/v1/entries/" + strconv.FormatInt(res.EntryID, 10),
	})
}

// List handles GET /v1/entries.
//
// @Summary      List entries with totals
// @Description  Workers only ever see their own entries, whatever worker_id they pass.
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        worker_id    query     int     false  "Worker id (managers only)"
// @Param        customer_id  query     int     false  "Customer id"
// @Param        month        query     string  false  "Month, YYYY-MM"
// @Success      200          {object}  ledgerResponse
// @Failure      400          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /v1/entries [get]
func (h *EntryHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var q listEntriesQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues("entries"))
	defer timer.ObserveDuration()

	l, err := h.service.List(c.Request().Context(), actor, ports.ListEntriesInput{
		WorkerID:   q.WorkerID,
		CustomerID: q.CustomerID,
		Month:      q.Month,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// Edit handles PUT /v1/entries/:id.
//
// @Summary      Edit an entry
// @Description  Entries outside the caller's scope are left alone and reported with affected=0.
// @Tags         entries
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "Entry id"
// @Param        body  body      editEntryRequest  true  "Replacement fields"
// @Success      200   {object}  mutationResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/entries/{id} [put]
func (h *EntryHandler) Edit(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req editEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.Edit(c.Request().Context(), actor, ports.EditEntryInput{
		EntryID:     id,
		WorkerID:    req.WorkerID,
		CustomerID:  req.CustomerID,
		Hours:       req.Hours.String(),
		Description: req.Description,
		WorkDate:    req.WorkDate,
	})
	observeMutation("edit", res, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /v1/entries/:id.
//
// @Summary      Delete an entry
// @Description  Entries outside the caller's scope are left alone and reported with affected=0.
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Entry id"
// @Success      200  {object}  mutationResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/entries/{id} [delete]
func (h *EntryHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	res, err := h.service.Delete(c.Request().Context(), actor, id)
	observeMutation("delete", res, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Report handles GET /v1/reports.
//
// @Summary      Manager report
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        month  query     string  false  "Month, YYYY-MM; omitted means all time"
// @Success      200    {object}  ports.Report
// @Failure      403    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /v1/reports [get]
func (h *EntryHandler) Report(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues("report"))
	defer timer.ObserveDuration()

	r, err := h.service.Report(c.Request().Context(), actor, c.QueryParam("month"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}
	return id, nil
}

func observeMutation(op string, res *ports.MutationResult, err error) {
	result := "applied"
	switch {
	case err != nil:
		result = "error"
	case res.Affected == 0:
		result = "noop"
	}
	metrics.EntryMutationsTotal.WithLabelValues(op, result).Inc()
}
