package ledger

import (
	"math"
	"testing"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

func entry(id, workerID int64, worker string, customerID int64, customer string, hours, workerRate, customerRate float64, date string) domain.LedgerEntry {
	return domain.LedgerEntry{
		TimeLogEntry: domain.TimeLogEntry{
			ID:         id,
			WorkerID:   workerID,
			CustomerID: customerID,
			Hours:      hours,
			WorkDate:   date,
		},
		WorkerName:   worker,
		CustomerName: customer,
		WorkerRate:   domain.NewRate(workerRate),
		CustomerRate: domain.NewRate(customerRate),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFold_AggregatesCostAndHours(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 1, "A", 10, "X", 10, 1600, 3200, "2024-03-01"),
		entry(2, 1, "A", 11, "Y", 5, 1600, 1600, "2024-03-02"),
	}

	l := Fold(entries, Filter{}, ByDateAsc)

	if !approx(l.Totals.Cost, 150) {
		t.Errorf("total cost: want 150, got %v", l.Totals.Cost)
	}
	if !approx(l.Totals.Revenue, 250) {
		t.Errorf("total revenue: want 250, got %v", l.Totals.Revenue)
	}
	if !approx(l.Totals.Profit, 100) {
		t.Errorf("total profit: want 100, got %v", l.Totals.Profit)
	}
	if got := l.Totals.HoursByWorker["A"]; got != 15 {
		t.Errorf("hours by worker A: want 15, got %v", got)
	}
	if l.Totals.HoursByCustomer["X"] != 10 || l.Totals.HoursByCustomer["Y"] != 5 {
		t.Errorf("hours by customer: got %v", l.Totals.HoursByCustomer)
	}
	if _, ok := l.Totals.HoursByWorker["B"]; ok {
		t.Errorf("unknown worker must be absent from the mapping")
	}
	for _, r := range l.Rows {
		if !approx(r.Cost+r.Profit, r.Revenue) {
			t.Errorf("row %d: cost+profit != revenue", r.ID)
		}
	}
}

func TestFold_NullRatesCountAsZero(t *testing.T) {
	e := entry(1, 1, "A", 10, "X", 8, 0, 0, "")
	e.WorkerRate = domain.NoRate
	e.CustomerRate = domain.NoRate

	l := Fold([]domain.LedgerEntry{e}, Filter{}, ByDateAsc)

	if len(l.Rows) != 1 {
		t.Fatalf("entry with absent rates must not be skipped, got %d rows", len(l.Rows))
	}
	if l.Rows[0].Cost != 0 || l.Rows[0].Revenue != 0 || l.Rows[0].Profit != 0 {
		t.Errorf("expected zero figures, got %+v", l.Rows[0])
	}
	if l.Totals.Hours != 8 {
		t.Errorf("hours still count: want 8, got %v", l.Totals.Hours)
	}
}

func TestFold_MonthFilter(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 1, "A", 10, "X", 1, 160, 320, "2024-03-15"),
		entry(2, 1, "A", 10, "X", 2, 160, 320, "2024-04-01"),
		entry(3, 1, "A", 10, "X", 4, 160, 320, ""),
	}

	march := Fold(entries, Filter{Month: "2024-03"}, ByDateAsc)
	if len(march.Rows) != 1 || march.Rows[0].ID != 1 {
		t.Fatalf("2024-03: expected only entry 1, got %+v", march.Rows)
	}

	april := Fold(entries, Filter{Month: "2024-04"}, ByDateAsc)
	if len(april.Rows) != 1 || april.Rows[0].ID != 2 {
		t.Fatalf("2024-04: expected only entry 2, got %+v", april.Rows)
	}

	all := Fold(entries, Filter{}, ByDateAsc)
	if len(all.Rows) != 3 || all.Totals.Hours != 7 {
		t.Fatalf("unfiltered: expected 3 rows / 7h, got %d rows / %vh", len(all.Rows), all.Totals.Hours)
	}
}

func TestFold_WorkerAndCustomerFilters(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 1, "A", 10, "X", 1, 0, 0, "2024-03-01"),
		entry(2, 2, "B", 10, "X", 2, 0, 0, "2024-03-01"),
		entry(3, 2, "B", 11, "Y", 3, 0, 0, "2024-03-01"),
	}

	byWorker := Fold(entries, Filter{WorkerID: 2}, ByDateAsc)
	if len(byWorker.Rows) != 2 || byWorker.Totals.Hours != 5 {
		t.Errorf("worker filter: got %d rows / %vh", len(byWorker.Rows), byWorker.Totals.Hours)
	}

	byCustomer := Fold(entries, Filter{CustomerID: 10}, ByDateAsc)
	if len(byCustomer.Rows) != 2 || byCustomer.Totals.Hours != 3 {
		t.Errorf("customer filter: got %d rows / %vh", len(byCustomer.Rows), byCustomer.Totals.Hours)
	}
}

func TestSort_ManagerOrder(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 2, "bob", 10, "zeta", 1, 0, 0, "2024-03-02"),
		entry(2, 1, "amy", 11, "beta", 1, 0, 0, "2024-03-02"),
		entry(3, 1, "amy", 10, "alpha", 1, 0, 0, "2024-03-02"),
		entry(4, 2, "bob", 10, "zeta", 1, 0, 0, ""),
		entry(5, 1, "amy", 10, "alpha", 1, 0, 0, "2024-03-01"),
	}

	l := Fold(entries, Filter{}, ByDateAsc)

	want := []int64{4, 5, 3, 2, 1}
	for i, id := range want {
		if l.Rows[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d (rows %+v)", i, id, l.Rows[i].ID, l.Rows)
		}
	}
}

func TestSort_RecentFirst(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 1, "A", 10, "X", 1, 0, 0, "2024-03-01"),
		entry(2, 1, "A", 10, "X", 1, 0, 0, "2024-03-05"),
		entry(3, 1, "A", 10, "X", 1, 0, 0, "2024-03-05"),
		entry(4, 1, "A", 10, "X", 1, 0, 0, ""),
	}

	l := Fold(entries, Filter{}, RecentFirst)

	want := []int64{3, 2, 1, 4}
	for i, id := range want {
		if l.Rows[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d", i, id, l.Rows[i].ID)
		}
	}
}

func TestLedger_LimitKeepsTotals(t *testing.T) {
	entries := []domain.LedgerEntry{
		entry(1, 1, "A", 10, "X", 1, 160, 0, "2024-03-01"),
		entry(2, 1, "A", 10, "X", 2, 160, 0, "2024-03-02"),
		entry(3, 1, "A", 10, "X", 3, 160, 0, "2024-03-03"),
	}

	l := Fold(entries, Filter{}, RecentFirst).Limit(2)

	if len(l.Rows) != 2 || l.Rows[0].ID != 3 {
		t.Fatalf("expected the two most recent rows, got %+v", l.Rows)
	}
	if l.Totals.Hours != 6 || !approx(l.Totals.Cost, 6) {
		t.Errorf("totals must cover all rows: %+v", l.Totals)
	}
}
