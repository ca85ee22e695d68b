package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub store. InTx snapshots state and restores it when fn fails,
// mirroring a rollback.
// ---------------------------------------------------------------------------

type stubStore struct {
	users     map[int64]domain.User
	customers map[int64]domain.Customer
	entries   map[int64]domain.TimeLogEntry
	nextID    int64

	txErr        error // if set, InTx fails before running fn
	listErr      error // if set, ListLedger returns this error
	ignoreFilter bool  // ListLedger returns every row, ignoring the filter
	txCount      int
	lastFilter   ledger.Filter
}

func newStubStore() *stubStore {
	return &stubStore{
		users:     make(map[int64]domain.User),
		customers: make(map[int64]domain.Customer),
		entries:   make(map[int64]domain.TimeLogEntry),
	}
}

func (s *stubStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *stubStore) addUser(name string, role domain.Role, rate domain.Rate) domain.User {
	u := domain.User{ID: s.id(), Username: name, Role: role, PayRate: rate}
	s.users[u.ID] = u
	return u
}

func (s *stubStore) addCustomer(name string, rate domain.Rate) domain.Customer {
	c := domain.Customer{ID: s.id(), Name: name, PayRate: rate}
	s.customers[c.ID] = c
	return c
}

func (s *stubStore) addEntry(workerID, customerID int64, hours float64, date string) domain.TimeLogEntry {
	e := domain.TimeLogEntry{ID: s.id(), WorkerID: workerID, CustomerID: customerID, Hours: hours, WorkDate: date}
	s.entries[e.ID] = e
	return e
}

func (s *stubStore) InTx(_ context.Context, fn func(q ports.Queries) error) error {
	s.txCount++
	if s.txErr != nil {
		return s.txErr
	}
	users, customers, entries, next := clone(s.users), clone(s.customers), clone(s.entries), s.nextID
	if err := fn(s); err != nil {
		s.users, s.customers, s.entries, s.nextID = users, customers, entries, next
		return err
	}
	return nil
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- users ---

func (s *stubStore) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *stubStore) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) CreateUserIfAbsent(_ context.Context, u *domain.User) (bool, error) {
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return false, nil
		}
	}
	u.ID = s.id()
	s.users[u.ID] = *u
	return true, nil
}

func (s *stubStore) ListUsers(context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) SetUserRate(_ context.Context, id int64, rate domain.Rate) (int64, error) {
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	u.PayRate = rate
	s.users[id] = u
	return 1, nil
}

// --- customers ---

func (s *stubStore) FindCustomerByID(_ context.Context, id int64) (*domain.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *stubStore) CreateCustomerIfAbsent(_ context.Context, c *domain.Customer) (bool, error) {
	for _, existing := range s.customers {
		if existing.Name == c.Name {
			return false, nil
		}
	}
	c.ID = s.id()
	s.customers[c.ID] = *c
	return true, nil
}

func (s *stubStore) ListCustomers(context.Context) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) SetCustomerRate(_ context.Context, id int64, rate domain.Rate) (int64, error) {
	c, ok := s.customers[id]
	if !ok {
		return 0, nil
	}
	c.PayRate = rate
	s.customers[id] = c
	return 1, nil
}

// --- entries ---

func (s *stubStore) InsertEntry(_ context.Context, e *domain.TimeLogEntry) (int64, error) {
	id := s.id()
	stored := *e
	stored.ID = id
	s.entries[id] = stored
	return id, nil
}

func (s *stubStore) FindEntry(_ context.Context, id, ownerID int64) (*domain.TimeLogEntry, error) {
	e, ok := s.entries[id]
	if !ok || (ownerID != 0 && e.WorkerID != ownerID) {
		return nil, domain.ErrEntryNotFound
	}
	return &e, nil
}

func (s *stubStore) UpdateEntry(_ context.Context, e *domain.TimeLogEntry, ownerID int64) (int64, error) {
	current, ok := s.entries[e.ID]
	if !ok || (ownerID != 0 && current.WorkerID != ownerID) {
		return 0, nil
	}
	updated := *e
	updated.CreatedAt = current.CreatedAt
	s.entries[e.ID] = updated
	return 1, nil
}

func (s *stubStore) DeleteEntry(_ context.Context, id, ownerID int64) (int64, error) {
	e, ok := s.entries[id]
	if !ok || (ownerID != 0 && e.WorkerID != ownerID) {
		return 0, nil
	}
	delete(s.entries, id)
	return 1, nil
}

func (s *stubStore) ListLedger(_ context.Context, f ledger.Filter) ([]domain.LedgerEntry, error) {
	s.lastFilter = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.LedgerEntry
	for _, e := range s.entries {
		le := domain.LedgerEntry{
			TimeLogEntry: e,
			WorkerName:   s.users[e.WorkerID].Username,
			CustomerName: s.customers[e.CustomerID].Name,
			WorkerRate:   s.users[e.WorkerID].PayRate,
			CustomerRate: s.customers[e.CustomerID].PayRate,
		}
		if !s.ignoreFilter && !f.Match(le) {
			continue
		}
		out = append(out, le)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit / dedup stubs
// ---------------------------------------------------------------------------

type stubAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *stubAudit) Record(_ context.Context, ev domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *stubAudit) kinds() []domain.AuditKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditKind, len(a.events))
	for i, ev := range a.events {
		out[i] = ev.Kind
	}
	return out
}

type stubDedup struct {
	keys        map[string]int64
	lookupErr   error
	rememberErr error
}

func newStubDedup() *stubDedup {
	return &stubDedup{keys: make(map[string]int64)}
}

func dedupKey(actorID int64, key string) string {
	return fmt.Sprintf("%d:%s", actorID, key)
}

func (d *stubDedup) Lookup(_ context.Context, actorID int64, key string) (int64, bool, error) {
	if d.lookupErr != nil {
		return 0, false, d.lookupErr
	}
	id, ok := d.keys[dedupKey(actorID, key)]
	return id, ok, nil
}

func (d *stubDedup) Remember(_ context.Context, actorID int64, key string, entryID int64) error {
	if d.rememberErr != nil {
		return d.rememberErr
	}
	d.keys[dedupKey(actorID, key)] = entryID
	return nil
}
