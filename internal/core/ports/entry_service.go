package ports

import (
	"context"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
)

// SubmitEntryInput carries a new time-log entry. Hours arrives as submitted
// text and is parsed by the service.
type SubmitEntryInput struct {
	CustomerID     int64
	Hours          string
	Description    string
	WorkDate       string
	IdempotencyKey string
}

// SubmitEntryResult is returned after a submission.
type SubmitEntryResult struct {
	EntryID int64
	// AlreadyExisted is true when the idempotency key matched an earlier submission.
	AlreadyExisted bool
}

// EditEntryInput carries the replacement fields for an entry.
// WorkerID 0 keeps the current owner.
type EditEntryInput struct {
	EntryID     int64
	WorkerID    int64
	CustomerID  int64
	Hours       string
	Description string
	WorkDate    string
}

// ListEntriesInput carries the optional filters of a listing.
type ListEntriesInput struct {
	WorkerID   int64
	CustomerID int64
	Month      string
}

// MutationResult reports how many rows a mutation touched.
type MutationResult struct {
	Affected int64 `json:"affected"`
}

// Dashboard is the landing view for an actor.
type Dashboard struct {
	Actor     domain.Actor      `json:"actor"`
	Customers []domain.Customer `json:"customers"`
	Ledger    ledger.Ledger     `json:"ledger"`
}

// EntryService implements the time-log operations for an explicit actor.
type EntryService interface {
	Submit(ctx context.Context, actor domain.Actor, in SubmitEntryInput) (*SubmitEntryResult, error)
	List(ctx context.Context, actor domain.Actor, in ListEntriesInput) (*ledger.Ledger, error)
	Edit(ctx context.Context, actor domain.Actor, in EditEntryInput) (*MutationResult, error)
	Delete(ctx context.Context, actor domain.Actor, entryID int64) (*MutationResult, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error)
	Report(ctx context.Context, actor domain.Actor, month string) (*Report, error)
	Customers(ctx context.Context, actor domain.Actor) ([]domain.Customer, error)
}

// Report is the monthly (or all-time) manager report.
type Report struct {
	Month  string        `json:"month,omitempty"`
	Ledger ledger.Ledger `json:"ledger"`
}
