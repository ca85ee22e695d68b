package ports

import (
	"context"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// AuthService authenticates users and issues bearer tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// EnsureManager creates a manager account unless the username exists.
	EnsureManager(ctx context.Context, username, password string) (created bool, err error)
}
