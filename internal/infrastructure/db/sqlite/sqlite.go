// Package sqlite is the relational store for users, customers and time-log
// entries. Every operation runs inside a transaction opened by Store.InTx.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

const (
	driverName     = "sqlite"
	defaultTimeout = 5 * time.Second
)

// Config captures the settings required to open the database file.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DSN builds the modernc connection string. Foreign keys are enforced on
// every connection.
func (c Config) DSN() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = defaultTimeout
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", c.Path, busy.Milliseconds())
}

// Store implements ports.Store over a SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ ports.Store = (*Store)(nil)

// Open creates the parent directory if needed, applies migrations and
// verifies connectivity.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := cfg.DSN()
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	log.Info().Str("path", cfg.Path).Msg("sqlite store ready")
	return &Store{db: db, log: log}, nil
}

// InTx runs fn in a transaction. It commits when fn returns nil and rolls back
// on error or panic; a panic is re-raised after the rollback.
func (s *Store) InTx(ctx context.Context, fn func(q ports.Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
