package ports

import (
	"context"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
)

// Store opens a transaction scope. fn runs inside one transaction; the
// transaction commits when fn returns nil and rolls back otherwise, including
// when fn panics.
type Store interface {
	InTx(ctx context.Context, fn func(q Queries) error) error
}

// Queries are the parameterised operations available inside a transaction.
type Queries interface {
	UserRepository
	CustomerRepository
	EntryRepository
}

// UserRepository persists users.
type UserRepository interface {
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	// CreateUserIfAbsent inserts the user unless the username is taken and
	// sets u.ID on success. created is false (and err nil) for a duplicate.
	CreateUserIfAbsent(ctx context.Context, u *domain.User) (created bool, err error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// SetUserRate replaces the pay rate and returns the number of rows changed.
	SetUserRate(ctx context.Context, id int64, rate domain.Rate) (int64, error)
}

// CustomerRepository persists customers.
type CustomerRepository interface {
	FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	// CreateCustomerIfAbsent behaves like CreateUserIfAbsent, keyed on name.
	CreateCustomerIfAbsent(ctx context.Context, c *domain.Customer) (created bool, err error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	SetCustomerRate(ctx context.Context, id int64, rate domain.Rate) (int64, error)
}

// EntryRepository persists time-log entries.
//
// ownerID restricts a mutation to entries owned by that worker; 0 means any
// entry. A mutation that matches no row returns 0 and no error.
type EntryRepository interface {
	InsertEntry(ctx context.Context, e *domain.TimeLogEntry) (int64, error)
	FindEntry(ctx context.Context, id, ownerID int64) (*domain.TimeLogEntry, error)
	UpdateEntry(ctx context.Context, e *domain.TimeLogEntry, ownerID int64) (int64, error)
	DeleteEntry(ctx context.Context, id, ownerID int64) (int64, error)
	// ListLedger returns entries joined with their worker and customer,
	// narrowed by f. Ordering is left to the ledger package.
	ListLedger(ctx context.Context, f ledger.Filter) ([]domain.LedgerEntry, error)
}
