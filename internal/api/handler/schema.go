package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// numericText accepts a JSON number, a JSON string or null and keeps the raw
// text, so the services can apply their own parsing rules to submitted values.
type numericText string

func (n *numericText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numericText(s)
	default:
		*n = numericText(b)
	}
	return nil
}

// UnmarshalParam lets echo bind form and query values into numericText.
func (n *numericText) UnmarshalParam(param string) error {
	*n = numericText(param)
	return nil
}

func (n numericText) String() string { return strings.TrimSpace(string(n)) }

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// --- Entries ---

type submitEntryRequest struct {
	CustomerID  int64       `json:"customer_id" form:"customer_id" validate:"required,gt=0"`
	Hours       numericText `json:"hours"       form:"hours"       validate:"required" swaggertype:"string" example:"7.5"`
	Description string      `json:"description" form:"description" validate:"max=2000"`
	WorkDate    string      `json:"work_date"   form:"work_date"   example:"2024-03-15"`
}

type submitEntryResponse struct {
	ID             int64  `json:"id"`
	AlreadyExisted bool   `json:"already_existed"`
	Self           string `json:"self"`
}

type editEntryRequest struct {
	WorkerID    int64       `json:"worker_id"   form:"worker_id"   validate:"gte=0"`
	CustomerID  int64       `json:"customer_id" form:"customer_id" validate:"required,gt=0"`
	Hours       numericText `json:"hours"       form:"hours"       validate:"required" swaggertype:"string" example:"7.5"`
	Description string      `json:"description" form:"description" validate:"max=2000"`
	WorkDate    string      `json:"work_date"   form:"work_date"   example:"2024-03-15"`
}

type listEntriesQuery struct {
	WorkerID   int64  `query:"worker_id"   validate:"gte=0"`
	CustomerID int64  `query:"customer_id" validate:"gte=0"`
	Month      string `query:"month"`
}

type ledgerResponse = ledger.Ledger

type mutationResponse = ports.MutationResult

// --- Admin ---

type addUserRequest struct {
	Username string      `json:"username" form:"username" validate:"max=64"`
	Rate     numericText `json:"rate"     form:"rate"     swaggertype:"string" example:"3200"`
}

type addCustomerRequest struct {
	Name string      `json:"name" form:"name" validate:"max=128"`
	Rate numericText `json:"rate" form:"rate" swaggertype:"string" example:"6400"`
}

type updateRatesResponse struct {
	Applied int                `json:"applied"`
	Cleared int                `json:"cleared"`
	Skipped int                `json:"skipped"`
	Items   []ports.RateResult `json:"items"`
}
