// Package ledger folds time-log entries into cost, revenue and profit figures.
//
// Everything here is pure: callers load the joined rows, ledger orders and sums
// them. No rounding happens at this layer.
package ledger

import (
	"sort"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// Filter narrows which entries participate. Zero values mean "no filter".
type Filter struct {
	WorkerID   int64
	CustomerID int64
	Month      string // YYYY-MM, matched against the first 7 chars of the work date
}

// Match reports whether e passes every set criterion.
func (f Filter) Match(e domain.LedgerEntry) bool {
	if f.WorkerID != 0 && e.WorkerID != f.WorkerID {
		return false
	}
	if f.CustomerID != 0 && e.CustomerID != f.CustomerID {
		return false
	}
	return domain.InMonth(e.WorkDate, f.Month)
}

// Row is the presentation-ready view of one entry.
type Row struct {
	ID           int64   `json:"id"`
	WorkerID     int64   `json:"worker_id"`
	CustomerID   int64   `json:"customer_id"`
	WorkerName   string  `json:"worker_name"`
	CustomerName string  `json:"customer_name"`
	Hours        float64 `json:"hours"`
	Cost         float64 `json:"cost"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
	Description  string  `json:"description"`
	WorkDate     string  `json:"work_date"`
}

// Totals are the scalar and grouped sums over the included entries.
type Totals struct {
	Hours           float64            `json:"hours"`
	Cost            float64            `json:"cost"`
	Revenue         float64            `json:"revenue"`
	Profit          float64            `json:"profit"`
	HoursByWorker   map[string]float64 `json:"hours_by_worker"`
	HoursByCustomer map[string]float64 `json:"hours_by_customer"`
}

// Ledger is an ordered set of rows plus their totals.
type Ledger struct {
	Rows   []Row  `json:"rows"`
	Totals Totals `json:"totals"`
}

// Order selects how rows are sorted.
type Order int

const (
	// ByDateAsc sorts by work date ascending (blank first), then worker, then customer.
	ByDateAsc Order = iota
	// RecentFirst sorts by work date descending, then entry id descending.
	RecentFirst
)

// ToRow computes the derived figures for a single entry.
func ToRow(e domain.LedgerEntry) Row {
	cost := e.Cost()
	revenue := e.Revenue()
	return Row{
		ID:           e.ID,
		WorkerID:     e.WorkerID,
		CustomerID:   e.CustomerID,
		WorkerName:   e.WorkerName,
		CustomerName: e.CustomerName,
		Hours:        e.Hours,
		Cost:         cost,
		Revenue:      revenue,
		Profit:       revenue - cost,
		Description:  e.Description,
		WorkDate:     e.WorkDate,
	}
}

// Fold filters, transforms, orders and totals the given entries.
func Fold(entries []domain.LedgerEntry, f Filter, order Order) Ledger {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		if !f.Match(e) {
			continue
		}
		rows = append(rows, ToRow(e))
	}
	Sort(rows, order)
	return Ledger{Rows: rows, Totals: Sum(rows)}
}

// Sort orders rows in place. The sort is stable so equal keys keep input order.
func Sort(rows []Row, order Order) {
	switch order {
	case RecentFirst:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].WorkDate != rows[j].WorkDate {
				return rows[i].WorkDate > rows[j].WorkDate
			}
			return rows[i].ID > rows[j].ID
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.WorkDate != b.WorkDate {
				return a.WorkDate < b.WorkDate
			}
			if a.WorkerName != b.WorkerName {
				return a.WorkerName < b.WorkerName
			}
			return a.CustomerName < b.CustomerName
		})
	}
}

// Sum accumulates scalar totals and per-worker / per-customer hours.
func Sum(rows []Row) Totals {
	t := Totals{
		HoursByWorker:   make(map[string]float64),
		HoursByCustomer: make(map[string]float64),
	}
	for _, r := range rows {
		t.Hours += r.Hours
		t.Cost += r.Cost
		t.Revenue += r.Revenue
		t.HoursByWorker[r.WorkerName] += r.Hours
		t.HoursByCustomer[r.CustomerName] += r.Hours
	}
	t.Profit = t.Revenue - t.Cost
	return t
}

// Limit truncates the ledger to at most n rows. Totals are left untouched.
func (l Ledger) Limit(n int) Ledger {
	if n > 0 && len(l.Rows) > n {
		l.Rows = l.Rows[:n]
	}
	return l
}
