// Command server runs the timesheet ledger HTTP API.
//
// @title                       Timesheet Ledger API
// @version                     1.0
// @description                 Hours, pay rates and billing rates with cost, revenue and profit reporting.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

//go:generate swag init -d ../../ -g cmd/server/main.go -o ../../docs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sirpyerre/timesheet-ledger/internal/api"
	"github.com/sirpyerre/timesheet-ledger/internal/api/handler"
	"github.com/sirpyerre/timesheet-ledger/internal/auth"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
	"github.com/sirpyerre/timesheet-ledger/internal/core/service"
	"github.com/sirpyerre/timesheet-ledger/internal/infrastructure/config"
	mongodb "github.com/sirpyerre/timesheet-ledger/internal/infrastructure/db/mongo"
	redisdb "github.com/sirpyerre/timesheet-ledger/internal/infrastructure/db/redis"
	"github.com/sirpyerre/timesheet-ledger/internal/infrastructure/db/sqlite"
	"github.com/sirpyerre/timesheet-ledger/internal/infrastructure/queue"
	"github.com/sirpyerre/timesheet-ledger/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "timesheet-ledger",
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Relational store ---
	store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path}, logger.Component("sqlite"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close sqlite")
		}
	}()

	checks := map[string]handler.Pinger{"sqlite": store.Ping}

	// --- Audit trail (optional) ---
	var (
		recorder ports.AuditRecorder = service.NopAuditRecorder{}
		trail    ports.AuditTrailService
	)
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()

	if cfg.Mongo.Enabled {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongodb.Disconnect(context.Background(), client); err != nil {
				log.Error().Err(err).Msg("disconnect mongodb")
			}
		}()

		repo := mongodb.NewAuditRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(repo, logger.Component("audit")), logger.Component("dispatcher"))
		dispatcher.Start(workerCtx)
		defer func() {
			stopWorkers()
			dispatcher.Wait()
		}()

		recorder = dispatcher
		trail = service.NewAuditTrailService(repo)
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		log.Info().Int("workers", cfg.Audit.Workers).Msg("audit trail enabled")
	}

	// --- Submission dedup (optional) ---
	var dedup ports.SubmissionDedup
	if cfg.Redis.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)

		dedup = redisdb.NewSubmissionDedup(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Msg("submission idempotency enabled")
	}

	// --- Services ---
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authService := service.NewAuthService(store, tokens, logger.Component("auth"))
	entryService := service.NewEntryService(store, recorder, dedup, cfg.Ledger.RecentEntriesLimit, logger.Component("entries"))
	adminService := service.NewAdminService(store, recorder, cfg.Accounts.DefaultUserPassword, logger.Component("admin"))

	if cfg.Accounts.BootstrapUsername != "" {
		created, err := authService.EnsureManager(ctx, cfg.Accounts.BootstrapUsername, cfg.Accounts.BootstrapPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("username", cfg.Accounts.BootstrapUsername).Msg("bootstrap manager created")
		}
	}

	e := api.NewRouter(api.Deps{
		Log:     logger.Component("http"),
		Tokens:  tokens,
		Auth:    authService,
		Entries: entryService,
		Admin:   adminService,
		Trail:   trail,
		Checks:  checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("timesheet ledger listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	// No request can record audit events any more; let the workers drain.
	stopWorkers()
	return nil
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("close redis")
	}
}
