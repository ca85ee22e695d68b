package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

type adminService struct {
	store           ports.Store
	audit           ports.AuditRecorder
	defaultPassword string
	log             zerolog.Logger
}

// NewAdminService returns an AdminService. Users created through AddUser get
// defaultPassword as their initial credential.
func NewAdminService(store ports.Store, audit ports.AuditRecorder, defaultPassword string, log zerolog.Logger) ports.AdminService {
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	return &adminService{store: store, audit: audit, defaultPassword: defaultPassword, log: log}
}

// UpdateRates applies a batch of "<kind>_<id>" → rate pairs. Blank values clear
// the rate, malformed keys or values are skipped, and the rest of the batch is
// still applied. The whole batch shares one transaction.
func (s *adminService) UpdateRates(ctx context.Context, actor domain.Actor, updates []ports.RateUpdate) (*ports.UpdateRatesResult, error) {
	if err := actor.Require(domain.CapAdminister); err != nil {
		return nil, err
	}

	result := &ports.UpdateRatesResult{Items: make([]ports.RateResult, 0, len(updates))}
	var events []domain.AuditEvent

	err := s.store.InTx(ctx, func(q ports.Queries) error {
		for _, u := range updates {
			item := ports.RateResult{Key: u.Key}
			kind, id, ok := parseRateKey(u.Key)
			if !ok {
				item.Outcome, item.Reason = ports.RateSkipped, "unrecognised key"
				result.Items = append(result.Items, item)
				continue
			}
			item.Kind, item.ID = kind, id

			rate, err := domain.ParseRate(u.Value)
			if err != nil {
				item.Outcome, item.Reason = ports.RateSkipped, err.Error()
				result.Items = append(result.Items, item)
				continue
			}

			var n int64
			switch kind {
			case domain.EntityUser:
				n, err = q.SetUserRate(ctx, id, rate)
			case domain.EntityCustomer:
				n, err = q.SetCustomerRate(ctx, id, rate)
			}
			if err != nil {
				return err
			}
			if n == 0 {
				item.Outcome, item.Reason = ports.RateSkipped, "no such "+string(kind)
				result.Items = append(result.Items, item)
				continue
			}

			auditKind := domain.AuditRateChanged
			item.Outcome = ports.RateApplied
			details := map[string]any{}
			if v, set := rate.Monthly(); set {
				details["rate"] = v
			} else {
				auditKind = domain.AuditRateCleared
				item.Outcome = ports.RateCleared
			}
			result.Items = append(result.Items, item)
			events = append(events, domain.NewAuditEvent(auditKind, actor, kind, id, details))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		s.audit.Record(ctx, ev)
	}
	s.log.Info().
		Int64("actor_id", actor.ID).
		Int("applied", result.Count(ports.RateApplied)).
		Int("cleared", result.Count(ports.RateCleared)).
		Int("skipped", result.Count(ports.RateSkipped)).
		Msg("rates updated")
	return result, nil
}

// AddUser creates a worker with the default credential. An existing username
// is a silent no-op.
func (s *adminService) AddUser(ctx context.Context, actor domain.Actor, username, rate string) (*ports.CreateResult, error) {
	if err := actor.Require(domain.CapAdminister); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return &ports.CreateResult{}, nil
	}

	hash, err := hashPassword(s.defaultPassword)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleWorker,
		PayRate:      lenientRate(rate),
	}

	var created bool
	err = s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		created, err = q.CreateUserIfAbsent(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !created {
		s.log.Debug().Str("username", username).Msg("user already exists, ignored")
		return &ports.CreateResult{}, nil
	}
	s.audit.Record(ctx, domain.NewAuditEvent(domain.AuditUserAdded, actor, domain.EntityUser, user.ID, map[string]any{
		"username": username,
	}))
	s.log.Info().Str("username", username).Int64("user_id", user.ID).Msg("user added")
	return &ports.CreateResult{Created: true, ID: user.ID}, nil
}

// AddCustomer mirrors AddUser for customers.
func (s *adminService) AddCustomer(ctx context.Context, actor domain.Actor, name, rate string) (*ports.CreateResult, error) {
	if err := actor.Require(domain.CapAdminister); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &ports.CreateResult{}, nil
	}

	customer := &domain.Customer{Name: name, PayRate: lenientRate(rate)}

	var created bool
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		created, err = q.CreateCustomerIfAbsent(ctx, customer)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !created {
		s.log.Debug().Str("customer", name).Msg("customer already exists, ignored")
		return &ports.CreateResult{}, nil
	}
	s.audit.Record(ctx, domain.NewAuditEvent(domain.AuditCustomerAdded, actor, domain.EntityCustomer, customer.ID, map[string]any{
		"name": name,
	}))
	s.log.Info().Str("customer", name).Int64("customer_id", customer.ID).Msg("customer added")
	return &ports.CreateResult{Created: true, ID: customer.ID}, nil
}

// ListUsers returns every user with their pay rate.
func (s *adminService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if err := actor.Require(domain.CapAdminister); err != nil {
		return nil, err
	}
	var users []domain.User
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		users, err = q.ListUsers(ctx)
		return err
	})
	return users, err
}

// parseRateKey splits "user_3" / "customer_7" into kind and id.
func parseRateKey(key string) (domain.EntityKind, int64, bool) {
	prefix, rawID, ok := strings.Cut(strings.TrimSpace(key), "_")
	if !ok {
		return "", 0, false
	}
	kind := domain.EntityKind(prefix)
	if kind != domain.EntityUser && kind != domain.EntityCustomer {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return kind, id, true
}

// lenientRate parses an optional rate on creation; blank or invalid is NoRate.
func lenientRate(s string) domain.Rate {
	r, err := domain.ParseRate(s)
	if errors.Is(err, domain.ErrValidation) {
		return domain.NoRate
	}
	return r
}
