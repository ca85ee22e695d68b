package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

const defaultRecentLimit = 10

type entryService struct {
	store       ports.Store
	audit       ports.AuditRecorder
	dedup       ports.SubmissionDedup
	log         zerolog.Logger
	recentLimit int
}

// NewEntryService returns an EntryService. dedup may be nil, in which case
// idempotency keys are ignored.
func NewEntryService(
	store ports.Store,
	audit ports.AuditRecorder,
	dedup ports.SubmissionDedup,
	recentLimit int,
	log zerolog.Logger,
) ports.EntryService {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &entryService{
		store:       store,
		audit:       audit,
		dedup:       dedup,
		log:         log,
		recentLimit: recentLimit,
	}
}

// Submit records hours for the acting user.
func (s *entryService) Submit(ctx context.Context, actor domain.Actor, in ports.SubmitEntryInput) (*ports.SubmitEntryResult, error) {
	if err := actor.Require(domain.CapSubmit); err != nil {
		return nil, err
	}
	entry, err := buildEntry(actor.ID, in.CustomerID, in.Hours, in.Description, in.WorkDate)
	if err != nil {
		return nil, err
	}

	if id, ok := s.replay(ctx, actor, in.IdempotencyKey); ok {
		return &ports.SubmitEntryResult{EntryID: id, AlreadyExisted: true}, nil
	}

	err = s.store.InTx(ctx, func(q ports.Queries) error {
		if _, err := q.FindUserByID(ctx, actor.ID); err != nil {
			return notFoundAs(err, domain.ErrWorkerNotFound)
		}
		if _, err := q.FindCustomerByID(ctx, entry.CustomerID); err != nil {
			return err
		}
		id, err := q.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" && s.dedup != nil {
		if err := s.dedup.Remember(ctx, actor.ID, in.IdempotencyKey, entry.ID); err != nil {
			s.log.Warn().Err(err).Int64("actor_id", actor.ID).Msg("failed to store idempotency key")
		}
	}

	s.audit.Record(ctx, domain.NewAuditEvent(domain.AuditEntrySubmitted, actor, domain.EntityEntry, entry.ID, map[string]any{
		"customer_id": entry.CustomerID,
		"hours":       entry.Hours,
		"work_date":   entry.WorkDate,
	}))
	s.log.Info().Int64("entry_id", entry.ID).Int64("actor_id", actor.ID).Float64("hours", entry.Hours).Msg("entry submitted")

	return &ports.SubmitEntryResult{EntryID: entry.ID}, nil
}

// replay looks up a previous submission made with the same idempotency key.
// Lookup failures are logged and treated as a miss.
func (s *entryService) replay(ctx context.Context, actor domain.Actor, key string) (int64, bool) {
	if key == "" || s.dedup == nil {
		return 0, false
	}
	id, found, err := s.dedup.Lookup(ctx, actor.ID, key)
	if err != nil {
		s.log.Warn().Err(err).Int64("actor_id", actor.ID).Msg("idempotency lookup failed, submitting anyway")
		return 0, false
	}
	if found {
		s.log.Info().Int64("actor_id", actor.ID).Int64("entry_id", id).Msg("idempotent replay")
	}
	return id, found
}

// List returns the entries visible to the actor. Workers are always pinned to
// their own entries regardless of the requested worker filter.
func (s *entryService) List(ctx context.Context, actor domain.Actor, in ports.ListEntriesInput) (*ledger.Ledger, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrForbidden
	}
	month, err := domain.ParseMonth(in.Month)
	if err != nil {
		return nil, err
	}
	filter := ledger.Filter{
		WorkerID:   actor.WorkerScope(in.WorkerID),
		CustomerID: in.CustomerID,
		Month:      month,
	}

	entries, err := s.loadLedger(ctx, filter)
	if err != nil {
		return nil, err
	}
	l := ledger.Fold(entries, filter, orderFor(actor))
	return &l, nil
}

// Edit replaces the fields of an entry the actor may change. An entry outside
// the actor's scope is left alone and reported as zero rows affected.
func (s *entryService) Edit(ctx context.Context, actor domain.Actor, in ports.EditEntryInput) (*ports.MutationResult, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrForbidden
	}
	if in.WorkerID != 0 && in.WorkerID != actor.ID && !actor.CanEditAny() {
		return nil, domain.ErrForbidden
	}
	entry, err := buildEntry(in.WorkerID, in.CustomerID, in.Hours, in.Description, in.WorkDate)
	if err != nil {
		return nil, err
	}
	entry.ID = in.EntryID
	owner := actor.OwnerScope()

	var affected int64
	err = s.store.InTx(ctx, func(q ports.Queries) error {
		current, err := q.FindEntry(ctx, in.EntryID, owner)
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.WorkerID == 0 {
			entry.WorkerID = current.WorkerID
		}
		if entry.WorkerID != current.WorkerID {
			if _, err := q.FindUserByID(ctx, entry.WorkerID); err != nil {
				return notFoundAs(err, domain.ErrWorkerNotFound)
			}
		}
		if _, err := q.FindCustomerByID(ctx, entry.CustomerID); err != nil {
			return err
		}
		affected, err = q.UpdateEntry(ctx, entry, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	if affected > 0 {
		s.audit.Record(ctx, domain.NewAuditEvent(domain.AuditEntryEdited, actor, domain.EntityEntry, entry.ID, map[string]any{
			"worker_id":   entry.WorkerID,
			"customer_id": entry.CustomerID,
			"hours":       entry.Hours,
			"work_date":   entry.WorkDate,
		}))
	}
	s.log.Info().Int64("entry_id", in.EntryID).Int64("actor_id", actor.ID).Int64("affected", affected).Msg("entry edited")
	return &ports.MutationResult{Affected: affected}, nil
}

// Delete removes an entry the actor may change; anything else is a no-op.
func (s *entryService) Delete(ctx context.Context, actor domain.Actor, entryID int64) (*ports.MutationResult, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrForbidden
	}

	var affected int64
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		affected, err = q.DeleteEntry(ctx, entryID, actor.OwnerScope())
		return err
	})
	if err != nil {
		return nil, err
	}

	if affected > 0 {
		s.audit.Record(ctx, domain.NewAuditEvent(domain.AuditEntryDeleted, actor, domain.EntityEntry, entryID, nil))
	}
	s.log.Info().Int64("entry_id", entryID).Int64("actor_id", actor.ID).Int64("affected", affected).Msg("entry deleted")
	return &ports.MutationResult{Affected: affected}, nil
}

// Dashboard returns the full ledger for managers and the actor's recent
// activity for workers, together with the customer list.
func (s *entryService) Dashboard(ctx context.Context, actor domain.Actor) (*ports.Dashboard, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrForbidden
	}
	filter := ledger.Filter{WorkerID: actor.WorkerScope(0)}

	var (
		customers []domain.Customer
		entries   []domain.LedgerEntry
	)
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		if customers, err = q.ListCustomers(ctx); err != nil {
			return err
		}
		entries, err = q.ListLedger(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	l := ledger.Fold(entries, filter, orderFor(actor))
	if !actor.CanViewAll() {
		l = l.Limit(s.recentLimit)
	}
	return &ports.Dashboard{
		Actor:     actor,
		Customers: visibleCustomers(actor, customers),
		Ledger:    l,
	}, nil
}

// Report aggregates every entry, or the entries of one YYYY-MM month.
func (s *entryService) Report(ctx context.Context, actor domain.Actor, month string) (*ports.Report, error) {
	if err := actor.Require(domain.CapViewAll); err != nil {
		return nil, err
	}
	month, err := domain.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	filter := ledger.Filter{Month: month}

	entries, err := s.loadLedger(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ports.Report{Month: month, Ledger: ledger.Fold(entries, filter, ledger.ByDateAsc)}, nil
}

// Customers lists customers for the submission form.
func (s *entryService) Customers(ctx context.Context, actor domain.Actor) ([]domain.Customer, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrForbidden
	}
	var customers []domain.Customer
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		customers, err = q.ListCustomers(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return visibleCustomers(actor, customers), nil
}

func (s *entryService) loadLedger(ctx context.Context, f ledger.Filter) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		entries, err = q.ListLedger(ctx, f)
		return err
	})
	return entries, err
}

func buildEntry(workerID, customerID int64, hours, description, workDate string) (*domain.TimeLogEntry, error) {
	if customerID <= 0 {
		return nil, &domain.ValidationError{Field: "customer_id", Reason: "is required"}
	}
	h, err := domain.ParseHours(hours)
	if err != nil {
		return nil, err
	}
	date, err := domain.ParseWorkDate(workDate)
	if err != nil {
		return nil, err
	}
	return &domain.TimeLogEntry{
		WorkerID:    workerID,
		CustomerID:  customerID,
		Hours:       h,
		Description: strings.TrimSpace(description),
		WorkDate:    date,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func orderFor(actor domain.Actor) ledger.Order {
	if actor.CanViewAll() {
		return ledger.ByDateAsc
	}
	return ledger.RecentFirst
}

// visibleCustomers hides billing rates from actors who cannot administer them.
func visibleCustomers(actor domain.Actor, customers []domain.Customer) []domain.Customer {
	if actor.CanAdminister() {
		return customers
	}
	out := make([]domain.Customer, len(customers))
	for i, c := range customers {
		out[i] = domain.Customer{ID: c.ID, Name: c.Name}
	}
	return out
}

// notFoundAs rewrites a user lookup miss into the more specific sentinel.
func notFoundAs(err, target error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return target
	}
	return err
}
