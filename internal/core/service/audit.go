package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// NopAuditRecorder discards audit events. Used when no audit store is configured.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, domain.AuditEvent) {}

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns the processor that writes audit events to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditProcessor {
	return &auditService{repo: repo, log: log}
}

// Process validates and stores a single audit event.
func (s *auditService) Process(ctx context.Context, ev domain.AuditEvent) error {
	if ev.ID == "" || ev.Kind == "" {
		return fmt.Errorf("process audit event: missing id or kind")
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("process audit event %s: %w", ev.ID, err)
	}
	s.log.Debug().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Str("entity", ev.EntityKey()).
		Msg("audit event stored")
	return nil
}

type auditTrailService struct {
	reader ports.AuditReader
}

// NewAuditTrailService returns the read side of the audit trail.
func NewAuditTrailService(reader ports.AuditReader) ports.AuditTrailService {
	return &auditTrailService{reader: reader}
}

// Trail returns the events of one entity, oldest first.
func (s *auditTrailService) Trail(ctx context.Context, actor domain.Actor, kind domain.EntityKind, id int64) ([]domain.AuditEvent, error) {
	if err := actor.Require(domain.CapAdminister); err != nil {
		return nil, err
	}
	switch kind {
	case domain.EntityUser, domain.EntityCustomer, domain.EntityEntry:
	default:
		return nil, &domain.ValidationError{Field: "entity", Value: string(kind), Reason: "must be user, customer or entry"}
	}
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: "must be positive"}
	}
	events, err := s.reader.ListByEntity(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("audit trail %s:%d: %w", kind, id, err)
	}
	return events, nil
}
