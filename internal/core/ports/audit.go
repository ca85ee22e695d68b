package ports

import (
	"context"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
)

// AuditRecorder accepts audit events. Record never fails the caller; delivery
// problems are the recorder's to log.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// AuditProcessor persists one audit event. Dispatcher workers call it.
type AuditProcessor interface {
	Process(ctx context.Context, event domain.AuditEvent) error
}

// AuditRepository stores audit events durably.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event domain.AuditEvent) error
}

// SubmissionDedup remembers which idempotency keys an actor already used.
type SubmissionDedup interface {
	// Lookup returns the entry id stored for key, or found=false.
	Lookup(ctx context.Context, actorID int64, key string) (entryID int64, found bool, err error)
	Remember(ctx context.Context, actorID int64, key string, entryID int64) error
}

// AuditReader reads back the stored trail of one entity.
type AuditReader interface {
	ListByEntity(ctx context.Context, kind domain.EntityKind, id int64) ([]domain.AuditEvent, error)
}

// AuditTrailService exposes the audit trail to administrators.
type AuditTrailService interface {
	Trail(ctx context.Context, actor domain.Actor, kind domain.EntityKind, id int64) ([]domain.AuditEvent, error)
}
