package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "data", "ledger.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type seed struct {
	alice, bob domain.User
	acme, ini  domain.Customer
}

func seedStore(t *testing.T, s *Store) seed {
	t.Helper()
	var out seed
	err := s.InTx(context.Background(), func(q ports.Queries) error {
		out.alice = domain.User{Username: "alice", PasswordHash: "x", Role: domain.RoleWorker, PayRate: domain.NewRate(1600)}
		out.bob = domain.User{Username: "bob", PasswordHash: "x", Role: domain.RoleWorker}
		out.acme = domain.Customer{Name: "acme", PayRate: domain.NewRate(3200)}
		out.ini = domain.Customer{Name: "initech"}
		for _, u := range []*domain.User{&out.alice, &out.bob} {
			if _, err := q.CreateUserIfAbsent(context.Background(), u); err != nil {
				return err
			}
		}
		for _, c := range []*domain.Customer{&out.acme, &out.ini} {
			if _, err := q.CreateCustomerIfAbsent(context.Background(), c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return out
}

func insert(t *testing.T, s *Store, e domain.TimeLogEntry) int64 {
	t.Helper()
	var id int64
	err := s.InTx(context.Background(), func(q ports.Queries) error {
		var err error
		id, err = q.InsertEntry(context.Background(), &e)
		return err
	})
	if err != nil {
		t.Fatalf("insert entry: %v", err)
	}
	return id
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), Config{Path: path}, zerolog.Nop())
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
		_ = s.Close()
	}
}

func TestStore_UsersAndRates(t *testing.T) {
	s := openTestStore(t)
	sd := seedStore(t, s)
	ctx := context.Background()

	err := s.InTx(ctx, func(q ports.Queries) error {
		dup := domain.User{Username: "alice", PasswordHash: "y", Role: domain.RoleManager}
		created, err := q.CreateUserIfAbsent(ctx, &dup)
		if err != nil {
			return err
		}
		if created || dup.ID != 0 {
			t.Errorf("duplicate username must be ignored, got created=%v id=%d", created, dup.ID)
		}

		u, err := q.FindUserByUsername(ctx, "alice")
		if err != nil {
			return err
		}
		if u.ID != sd.alice.ID || u.Role != domain.RoleWorker || u.PasswordHash != "x" {
			t.Errorf("existing user must be unchanged: %+v", u)
		}
		if v, ok := u.PayRate.Monthly(); !ok || v != 1600 {
			t.Errorf("expected rate 1600, got %v (set=%v)", v, ok)
		}

		bob, err := q.FindUserByID(ctx, sd.bob.ID)
		if err != nil {
			return err
		}
		if bob.PayRate.IsSet() {
			t.Errorf("bob has no rate, got %+v", bob.PayRate)
		}

		if n, err := q.SetUserRate(ctx, sd.bob.ID, domain.NewRate(2000)); err != nil || n != 1 {
			t.Errorf("set rate: n=%d err=%v", n, err)
		}
		if n, err := q.SetUserRate(ctx, 9999, domain.NewRate(2000)); err != nil || n != 0 {
			t.Errorf("unknown user must affect 0 rows: n=%d err=%v", n, err)
		}
		if n, err := q.SetCustomerRate(ctx, sd.acme.ID, domain.NoRate); err != nil || n != 1 {
			t.Errorf("clear customer rate: n=%d err=%v", n, err)
		}

		if _, err := q.FindUserByID(ctx, 9999); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := q.FindCustomerByID(ctx, 9999); !errors.Is(err, domain.ErrCustomerNotFound) {
			t.Errorf("expected ErrCustomerNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	_ = s.InTx(ctx, func(q ports.Queries) error {
		users, err := q.ListUsers(ctx)
		if err != nil {
			t.Fatalf("list users: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if v, _ := users[1].PayRate.Monthly(); v != 2000 {
			t.Errorf("bob's rate was not persisted: %+v", users[1])
		}
		customers, err := q.ListCustomers(ctx)
		if err != nil {
			t.Fatalf("list customers: %v", err)
		}
		if len(customers) != 2 || customers[0].PayRate.IsSet() {
			t.Errorf("acme's rate must be cleared: %+v", customers)
		}
		return nil
	})
}

func TestStore_RejectsUnknownRole(t *testing.T) {
	s := openTestStore(t)

	err := s.InTx(context.Background(), func(q ports.Queries) error {
		_, err := q.CreateUserIfAbsent(context.Background(), &domain.User{Username: "eve", PasswordHash: "x", Role: "admin"})
		return err
	})
	if err == nil {
		t.Fatalf("expected role check constraint to fail")
	}
}

func TestStore_ForeignKeysEnforced(t *testing.T) {
	s := openTestStore(t)
	sd := seedStore(t, s)

	err := s.InTx(context.Background(), func(q ports.Queries) error {
		_, err := q.InsertEntry(context.Background(), &domain.TimeLogEntry{WorkerID: sd.alice.ID, CustomerID: 9999, Hours: 1})
		return err
	})
	if err == nil {
		t.Fatalf("expected foreign key violation")
	}
}

func TestStore_EntryOwnerScope(t *testing.T) {
	s := openTestStore(t)
	sd := seedStore(t, s)
	ctx := context.Background()
	id := insert(t, s, domain.TimeLogEntry{WorkerID: sd.bob.ID, CustomerID: sd.acme.ID, Hours: 3, WorkDate: "2024-03-01"})

	_ = s.InTx(ctx, func(q ports.Queries) error {
		if _, err := q.FindEntry(ctx, id, sd.alice.ID); !errors.Is(err, domain.ErrEntryNotFound) {
			t.Errorf("foreign entry must look missing, got %v", err)
		}
		n, err := q.UpdateEntry(ctx, &domain.TimeLogEntry{ID: id, WorkerID: sd.alice.ID, CustomerID: sd.acme.ID, Hours: 99}, sd.alice.ID)
		if err != nil || n != 0 {
			t.Errorf("foreign update: n=%d err=%v", n, err)
		}
		n, err = q.DeleteEntry(ctx, id, sd.alice.ID)
		if err != nil || n != 0 {
			t.Errorf("foreign delete: n=%d err=%v", n, err)
		}

		e, err := q.FindEntry(ctx, id, 0)
		if err != nil {
			t.Fatalf("entry must still exist: %v", err)
		}
		if e.Hours != 3 || e.WorkDate != "2024-03-01" || e.Description != "" {
			t.Errorf("entry changed: %+v", e)
		}

		n, err = q.UpdateEntry(ctx, &domain.TimeLogEntry{ID: id, WorkerID: sd.bob.ID, CustomerID: sd.ini.ID, Hours: 4, Description: "fix"}, sd.bob.ID)
		if err != nil || n != 1 {
			t.Errorf("owner update: n=%d err=%v", n, err)
		}
		n, err = q.DeleteEntry(ctx, id, 0)
		if err != nil || n != 1 {
			t.Errorf("unscoped delete: n=%d err=%v", n, err)
		}
		return nil
	})
}

func TestStore_ListLedger(t *testing.T) {
	s := openTestStore(t)
	sd := seedStore(t, s)
	ctx := context.Background()
	insert(t, s, domain.TimeLogEntry{WorkerID: sd.alice.ID, CustomerID: sd.acme.ID, Hours: 10, WorkDate: "2024-03-01", Description: "a"})
	insert(t, s, domain.TimeLogEntry{WorkerID: sd.alice.ID, CustomerID: sd.ini.ID, Hours: 5, WorkDate: "2024-04-02"})
	insert(t, s, domain.TimeLogEntry{WorkerID: sd.bob.ID, CustomerID: sd.acme.ID, Hours: 2})

	list := func(f ledger.Filter) []domain.LedgerEntry {
		var out []domain.LedgerEntry
		if err := s.InTx(ctx, func(q ports.Queries) error {
			var err error
			out, err = q.ListLedger(ctx, f)
			return err
		}); err != nil {
			t.Fatalf("list ledger: %v", err)
		}
		return out
	}

	all := list(ledger.Filter{})
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	first := all[0]
	if first.WorkerName != "alice" || first.CustomerName != "acme" || first.Description != "a" {
		t.Errorf("join columns missing: %+v", first)
	}
	if v, _ := first.WorkerRate.Monthly(); v != 1600 {
		t.Errorf("worker rate not joined: %+v", first.WorkerRate)
	}
	if all[1].CustomerRate.IsSet() || all[2].WorkerRate.IsSet() {
		t.Errorf("null rates must stay absent")
	}
	if all[2].WorkDate != "" {
		t.Errorf("null work date must read as blank, got %q", all[2].WorkDate)
	}

	if got := list(ledger.Filter{WorkerID: sd.alice.ID}); len(got) != 2 {
		t.Errorf("worker filter: expected 2, got %d", len(got))
	}
	if got := list(ledger.Filter{CustomerID: sd.acme.ID}); len(got) != 2 {
		t.Errorf("customer filter: expected 2, got %d", len(got))
	}
	march := list(ledger.Filter{Month: "2024-03"})
	if len(march) != 1 || march[0].Hours != 10 {
		t.Errorf("month filter: got %+v", march)
	}

	l := ledger.Fold(all, ledger.Filter{}, ledger.ByDateAsc)
	if l.Totals.Cost != 150 || l.Totals.HoursByWorker["alice"] != 15 {
		t.Errorf("unexpected totals: %+v", l.Totals)
	}
}

func TestStore_InTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(q ports.Queries) error {
		if _, err := q.CreateCustomerIfAbsent(ctx, &domain.Customer{Name: "acme"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	assertNoCustomers(t, s)
}

func TestStore_InTxRollsBackOnPanic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic must propagate")
			}
		}()
		_ = s.InTx(ctx, func(q ports.Queries) error {
			_, _ = q.CreateCustomerIfAbsent(ctx, &domain.Customer{Name: "acme"})
			panic("kaboom")
		})
	}()
	assertNoCustomers(t, s)
}

func assertNoCustomers(t *testing.T, s *Store) {
	t.Helper()
	_ = s.InTx(context.Background(), func(q ports.Queries) error {
		cs, err := q.ListCustomers(context.Background())
		if err != nil {
			t.Fatalf("list customers: %v", err)
		}
		if len(cs) != 0 {
			t.Fatalf("expected rollback, found %+v", cs)
		}
		return nil
	})
}
