package ports

import (
	"context"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// RateUpdate is one submitted (entity, rate) pair, e.g. Key "user_3", Value "2000".
type RateUpdate struct {
	Key   string
	Value string
}

// RateOutcome describes what happened to a single RateUpdate.
type RateOutcome string

const (
	RateApplied RateOutcome = "applied"
	RateCleared RateOutcome = "cleared"
	RateSkipped RateOutcome = "skipped"
)

// RateResult is the per-item outcome of a batch.
type RateResult struct {
	Key     string            `json:"key"`
	Kind    domain.EntityKind `json:"kind,omitempty"`
	ID      int64             `json:"id,omitempty"`
	Outcome RateOutcome       `json:"outcome"`
	Reason  string            `json:"reason,omitempty"`
}

// UpdateRatesResult reports every item of a rate batch.
type UpdateRatesResult struct {
	Items []RateResult `json:"items"`
}

// Count returns how many items ended with outcome o.
func (r UpdateRatesResult) Count(o RateOutcome) int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome == o {
			n++
		}
	}
	return n
}

// CreateResult reports an idempotent creation.
type CreateResult struct {
	Created bool  `json:"created"`
	ID      int64 `json:"id,omitempty"`
}

// AdminService implements the manager-only mutations.
type AdminService interface {
	UpdateRates(ctx context.Context, actor domain.Actor, updates []RateUpdate) (*UpdateRatesResult, error)
	AddUser(ctx context.Context, actor domain.Actor, username, rate string) (*CreateResult, error)
	AddCustomer(ctx context.Context, actor domain.Actor, name, rate string) (*CreateResult, error)
	ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error)
}
