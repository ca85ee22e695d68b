package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ledger"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements ports.Queries on top of a transaction.
type Queries struct {
	db dbtx
}

var _ ports.Queries = (*Queries)(nil)

func newQueries(db dbtx) *Queries {
	return &Queries{db: db}
}

// --- users ---

const userColumns = `id, username, password_hash, role, pay_rate`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u    domain.User
		role string
		rate sql.NullFloat64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &rate); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.PayRate = fromNull(rate)
	return &u, nil
}

func (q *Queries) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}

func (q *Queries) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (q *Queries) CreateUserIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, pay_rate) VALUES (?, ?, ?, ?)
		 ON CONFLICT (username) DO NOTHING`,
		u.Username, u.PasswordHash, string(u.Role), toNull(u.PayRate),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return insertedID(res, &u.ID)
}

func (q *Queries) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (q *Queries) SetUserRate(ctx context.Context, id int64, rate domain.Rate) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET pay_rate = ? WHERE id = ?`, toNull(rate), id)
	if err != nil {
		return 0, fmt.Errorf("set user rate: %w", err)
	}
	return res.RowsAffected()
}

// --- customers ---

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var (
		c    domain.Customer
		rate sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.Name, &rate); err != nil {
		return nil, err
	}
	c.PayRate = fromNull(rate)
	return &c, nil
}

func (q *Queries) FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(q.db.QueryRowContext(ctx, `SELECT id, name, pay_rate FROM customers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer %d: %w", id, err)
	}
	return c, nil
}

func (q *Queries) CreateCustomerIfAbsent(ctx context.Context, c *domain.Customer) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO customers (name, pay_rate) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		c.Name, toNull(c.PayRate),
	)
	if err != nil {
		return false, fmt.Errorf("insert customer: %w", err)
	}
	return insertedID(res, &c.ID)
}

func (q *Queries) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, pay_rate FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (q *Queries) SetCustomerRate(ctx context.Context, id int64, rate domain.Rate) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE customers SET pay_rate = ? WHERE id = ?`, toNull(rate), id)
	if err != nil {
		return 0, fmt.Errorf("set customer rate: %w", err)
	}
	return res.RowsAffected()
}

// --- entries ---

// ownerClause matches any row when the owner argument is 0.
const ownerClause = `(? = 0 OR user_id = ?)`

func (q *Queries) InsertEntry(ctx context.Context, e *domain.TimeLogEntry) (int64, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO logs (user_id, customer_id, hours, description, work_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.WorkerID, e.CustomerID, e.Hours, nullString(e.Description), nullString(e.WorkDate),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

func (q *Queries) FindEntry(ctx context.Context, id, ownerID int64) (*domain.TimeLogEntry, error) {
	var (
		e                     domain.TimeLogEntry
		description, workDate sql.NullString
		createdAt             string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, customer_id, hours, description, work_date, created_at
		 FROM logs WHERE id = ? AND `+ownerClause,
		id, ownerID, ownerID,
	).Scan(&e.ID, &e.WorkerID, &e.CustomerID, &e.Hours, &description, &workDate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry %d: %w", id, err)
	}
	e.Description = description.String
	e.WorkDate = workDate.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}

func (q *Queries) UpdateEntry(ctx context.Context, e *domain.TimeLogEntry, ownerID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE logs SET user_id = ?, customer_id = ?, hours = ?, description = ?, work_date = ?
		 WHERE id = ? AND `+ownerClause,
		e.WorkerID, e.CustomerID, e.Hours, nullString(e.Description), nullString(e.WorkDate),
		e.ID, ownerID, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteEntry(ctx context.Context, id, ownerID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ? AND `+ownerClause, id, ownerID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete entry %d: %w", id, err)
	}
	return res.RowsAffected()
}

func (q *Queries) ListLedger(ctx context.Context, f ledger.Filter) ([]domain.LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT l.id, l.user_id, l.customer_id, l.hours, l.description, l.work_date, l.created_at,
		        u.username, c.name, u.pay_rate, c.pay_rate
		 FROM logs l
		 JOIN users u ON u.id = l.user_id
		 JOIN customers c ON c.id = l.customer_id
		 WHERE (? = 0 OR l.user_id = ?)
		   AND (? = 0 OR l.customer_id = ?)
		   AND (? = '' OR substr(l.work_date, 1, 7) = ?)
		 ORDER BY l.id`,
		f.WorkerID, f.WorkerID, f.CustomerID, f.CustomerID, f.Month, f.Month,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e                        domain.LedgerEntry
			description, workDate    sql.NullString
			createdAt                string
			workerRate, customerRate sql.NullFloat64
		)
		if err := rows.Scan(
			&e.ID, &e.WorkerID, &e.CustomerID, &e.Hours, &description, &workDate, &createdAt,
			&e.WorkerName, &e.CustomerName, &workerRate, &customerRate,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		e.Description = description.String
		e.WorkDate = workDate.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.WorkerRate = fromNull(workerRate)
		e.CustomerRate = fromNull(customerRate)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

func insertedID(res sql.Result, id *int64) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if *id, err = res.LastInsertId(); err != nil {
		return false, err
	}
	return true, nil
}

func toNull(r domain.Rate) sql.NullFloat64 {
	v, ok := r.Monthly()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func fromNull(n sql.NullFloat64) domain.Rate {
	if !n.Valid {
		return domain.NoRate
	}
	return domain.NewRate(n.Float64)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
