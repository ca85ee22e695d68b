package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

func newAdminFixture() (*stubStore, *stubAudit, ports.AdminService) {
	store := newStubStore()
	audit := &stubAudit{}
	return store, audit, NewAdminService(store, audit, "changeme", zerolog.Nop())
}

func TestAdminService_UpdateRates_PartialBatch(t *testing.T) {
	store, audit, svc := newAdminFixture()
	boss := store.addUser("boss", domain.RoleManager, domain.NoRate)
	store.addUser("amy", domain.RoleWorker, domain.NoRate)
	worker := store.addUser("wes", domain.RoleWorker, domain.NoRate)
	for store.nextID < 6 {
		store.id()
	}
	customer := store.addCustomer("acme", domain.NewRate(500))
	if worker.ID != 3 || customer.ID != 7 {
		t.Fatalf("fixture ids drifted: user %d customer %d", worker.ID, customer.ID)
	}

	res, err := svc.UpdateRates(context.Background(), actorOf(boss), []ports.RateUpdate{
		{Key: "user_3", Value: "2000"},
		{Key: "customer_7", Value: "abc"},
	})
	if err != nil {
		t.Fatalf("update rates: %v", err)
	}

	if v, ok := store.users[3].PayRate.Monthly(); !ok || v != 2000 {
		t.Errorf("user 3 rate: want 2000, got %v (set=%v)", v, ok)
	}
	if v, _ := store.customers[7].PayRate.Monthly(); v != 500 {
		t.Errorf("customer 7 rate must be unchanged, got %v", v)
	}
	if res.Count(ports.RateApplied) != 1 || res.Count(ports.RateSkipped) != 1 {
		t.Fatalf("unexpected outcomes: %+v", res.Items)
	}
	if kinds := audit.kinds(); len(kinds) != 1 || kinds[0] != domain.AuditRateChanged {
		t.Errorf("expected one rate_changed event, got %v", kinds)
	}
}

func TestAdminService_UpdateRates_BlankClears(t *testing.T) {
	store, audit, svc := newAdminFixture()
	boss := store.addUser("boss", domain.RoleManager, domain.NoRate)
	c := store.addCustomer("acme", domain.NewRate(500))

	res, err := svc.UpdateRates(context.Background(), actorOf(boss), []ports.RateUpdate{
		{Key: "customer_" + itoa(c.ID), Value: "  "},
	})
	if err != nil {
		t.Fatalf("update rates: %v", err)
	}
	if store.customers[c.ID].PayRate.IsSet() {
		t.Fatalf("blank value must clear the rate")
	}
	if res.Items[0].Outcome != ports.RateCleared {
		t.Fatalf("expected cleared outcome, got %+v", res.Items[0])
	}
	if kinds := audit.kinds(); len(kinds) != 1 || kinds[0] != domain.AuditRateCleared {
		t.Errorf("expected rate_cleared event, got %v", kinds)
	}
}

func TestAdminService_UpdateRates_SkipsUnknownKeysAndIDs(t *testing.T) {
	store, _, svc := newAdminFixture()
	boss := store.addUser("boss", domain.RoleManager, domain.NoRate)

	res, err := svc.UpdateRates(context.Background(), actorOf(boss), []ports.RateUpdate{
		{Key: "project_1", Value: "10"},
		{Key: "user_x", Value: "10"},
		{Key: "user", Value: "10"},
		{Key: "user_999", Value: "10"},
		{Key: "user_" + itoa(boss.ID), Value: "NaN"},
	})
	if err != nil {
		t.Fatalf("update rates: %v", err)
	}
	if got := res.Count(ports.RateSkipped); got != 5 {
		t.Fatalf("expected every item skipped, got %d: %+v", got, res.Items)
	}
	if store.users[boss.ID].PayRate.IsSet() {
		t.Fatalf("no rate must change")
	}
}

func TestAdminService_UpdateRates_StoreErrorRollsBack(t *testing.T) {
	store, audit, svc := newAdminFixture()
	boss := store.addUser("boss", domain.RoleManager, domain.NoRate)
	store.txErr = errors.New("locked")

	if _, err := svc.UpdateRates(context.Background(), actorOf(boss), []ports.RateUpdate{{Key: "user_1", Value: "1"}}); err == nil {
		t.Fatalf("expected datastore error")
	}
	if len(audit.kinds()) != 0 {
		t.Fatalf("failed batches must not be audited")
	}
}

func TestAdminService_RequiresManager(t *testing.T) {
	store, _, svc := newAdminFixture()
	worker := actorOf(store.addUser("wes", domain.RoleWorker, domain.NoRate))
	ctx := context.Background()

	if _, err := svc.UpdateRates(ctx, worker, []ports.RateUpdate{{Key: "user_1", Value: "1"}}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("UpdateRates: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.AddUser(ctx, worker, "eve", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AddUser: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.AddCustomer(ctx, worker, "acme", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("AddCustomer: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListUsers(ctx, worker); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ListUsers: expected ErrForbidden, got %v", err)
	}
	if v, _ := store.users[worker.ID].PayRate.Monthly(); v != 0 || len(store.users) != 1 || len(store.customers) != 0 {
		t.Fatalf("forbidden calls must not change state")
	}
}

func TestAdminService_AddUser_Idempotent(t *testing.T) {
	store, audit, svc := newAdminFixture()
	boss := actorOf(store.addUser("boss", domain.RoleManager, domain.NoRate))

	first, err := svc.AddUser(context.Background(), boss, "  wanda ", "1600")
	if err != nil || !first.Created {
		t.Fatalf("first add: %+v, %v", first, err)
	}
	second, err := svc.AddUser(context.Background(), boss, "wanda", "9999")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.Created {
		t.Fatalf("duplicate username must be a no-op")
	}

	u := store.users[first.ID]
	if u.Username != "wanda" || u.Role != domain.RoleWorker {
		t.Fatalf("unexpected user: %+v", u)
	}
	if v, _ := u.PayRate.Monthly(); v != 1600 {
		t.Fatalf("duplicate must not overwrite the rate, got %v", v)
	}
	if len(audit.kinds()) != 1 {
		t.Fatalf("only the creation is audited, got %v", audit.kinds())
	}
}

func TestAdminService_AddUser_InvalidRateStoredAsNull(t *testing.T) {
	store, _, svc := newAdminFixture()
	boss := actorOf(store.addUser("boss", domain.RoleManager, domain.NoRate))

	res, err := svc.AddUser(context.Background(), boss, "wanda", "lots")
	if err != nil || !res.Created {
		t.Fatalf("add user: %+v, %v", res, err)
	}
	if store.users[res.ID].PayRate.IsSet() {
		t.Fatalf("invalid rate must be stored as absent")
	}
}

func TestAdminService_AddUser_BlankName(t *testing.T) {
	store, _, svc := newAdminFixture()
	boss := actorOf(store.addUser("boss", domain.RoleManager, domain.NoRate))

	res, err := svc.AddUser(context.Background(), boss, "   ", "")
	if err != nil || res.Created {
		t.Fatalf("blank username must be ignored, got %+v, %v", res, err)
	}
	if len(store.users) != 1 {
		t.Fatalf("no user must be created")
	}
}

func TestAdminService_AddCustomer(t *testing.T) {
	store, audit, svc := newAdminFixture()
	boss := actorOf(store.addUser("boss", domain.RoleManager, domain.NoRate))

	res, err := svc.AddCustomer(context.Background(), boss, "acme", "3200")
	if err != nil || !res.Created {
		t.Fatalf("add customer: %+v, %v", res, err)
	}
	dup, err := svc.AddCustomer(context.Background(), boss, "acme", "")
	if err != nil || dup.Created {
		t.Fatalf("duplicate customer must be a no-op, got %+v, %v", dup, err)
	}
	if len(store.customers) != 1 {
		t.Fatalf("expected one customer, got %d", len(store.customers))
	}
	if kinds := audit.kinds(); len(kinds) != 1 || kinds[0] != domain.AuditCustomerAdded {
		t.Fatalf("expected customer_added event, got %v", kinds)
	}
}

func TestAdminService_ListUsers(t *testing.T) {
	store, _, svc := newAdminFixture()
	boss := actorOf(store.addUser("boss", domain.RoleManager, domain.NoRate))
	store.addUser("wes", domain.RoleWorker, domain.NewRate(1000))

	users, err := svc.ListUsers(context.Background(), boss)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[1].Username != "wes" {
		t.Fatalf("unexpected users: %+v", users)
	}
}
