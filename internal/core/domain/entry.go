package domain

import (
	"strings"
	"time"
)

const (
	workDateLayout = "2006-01-02"
	monthLayout    = "2006-01"
)

// TimeLogEntry is one block of hours a worker spent on a customer.
// WorkDate is a YYYY-MM-DD calendar day or empty.
type TimeLogEntry struct {
	ID          int64     `json:"id"`
	WorkerID    int64     `json:"worker_id"`
	CustomerID  int64     `json:"customer_id"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	WorkDate    string    `json:"work_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// LedgerEntry is a TimeLogEntry joined with the rates of its worker and customer.
type LedgerEntry struct {
	TimeLogEntry
	WorkerName   string
	CustomerName string
	WorkerRate   Rate
	CustomerRate Rate
}

// Cost is what the worker is paid for the entry.
func (e LedgerEntry) Cost() float64 {
	return e.Hours * Hourly(e.WorkerRate)
}

// Revenue is what the customer is billed for the entry.
func (e LedgerEntry) Revenue() float64 {
	return e.Hours * Hourly(e.CustomerRate)
}

// Profit is revenue minus cost.
func (e LedgerEntry) Profit() float64 {
	return e.Revenue() - e.Cost()
}

// ParseWorkDate normalises an optional work date. Blank stays blank.
func ParseWorkDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(workDateLayout, s); err != nil {
		return "", &ValidationError{Field: "work_date", Value: s, Reason: "must be YYYY-MM-DD"}
	}
	return s, nil
}

// ParseMonth validates an optional YYYY-MM month filter. Blank means no filter.
func ParseMonth(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", &ValidationError{Field: "month", Value: s, Reason: "must be YYYY-MM"}
	}
	return s, nil
}

// InMonth reports whether workDate falls in month. An empty month matches
// everything; an empty work date matches no month.
func InMonth(workDate, month string) bool {
	if month == "" {
		return true
	}
	if len(workDate) < len(month) {
		return false
	}
	return workDate[:len(month)] == month
}
