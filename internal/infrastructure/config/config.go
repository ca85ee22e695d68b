package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL,   default=24h"`

	Accounts AccountsConfig
	SQLite   SQLiteConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Ledger   LedgerConfig
}

type AccountsConfig struct {
	DefaultUserPassword string `env:"DEFAULT_USER_PASSWORD,      default=changeme"`
	BootstrapUsername   string `env:"BOOTSTRAP_MANAGER_USERNAME"`
	BootstrapPassword   string `env:"BOOTSTRAP_MANAGER_PASSWORD"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=./data/ledger.db"`
}

type MongoConfig struct {
	Enabled  bool   `env:"MONGO_ENABLED, default=false"`
	URI      string `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,      default=timesheet_ledger"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED,  default=false"`
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type LedgerConfig struct {
	RecentEntriesLimit int `env:"RECENT_ENTRIES_LIMIT, default=10"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.SQLite.Path == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required"))
	}
	if c.Accounts.DefaultUserPassword == "" {
		errs = append(errs, errors.New("DEFAULT_USER_PASSWORD must not be empty"))
	}
	if (c.Accounts.BootstrapUsername == "") != (c.Accounts.BootstrapPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_MANAGER_USERNAME and BOOTSTRAP_MANAGER_PASSWORD must be set together"))
	}
	if c.Ledger.RecentEntriesLimit <= 0 {
		errs = append(errs, errors.New("RECENT_ENTRIES_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
