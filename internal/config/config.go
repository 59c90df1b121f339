package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	Admin     AdminConfig
	Rewards   RewardsConfig
	Identity  IdentityConfig
	Journal   JournalConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"rewards_db"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AdminConfig holds the administrator credential. Admin routes are not mounted when Password is empty.
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

// Enabled reports whether an admin credential is configured.
func (c AdminConfig) Enabled() bool {
	return c.Email != "" && c.Password != ""
}

// RewardsConfig holds the tunables of the reward state machine.
type RewardsConfig struct {
	InitialGrant      int64         `envconfig:"INITIAL_GRANT" default:"0"`
	TaskVerifySeconds int           `envconfig:"TASK_VERIFY_SECONDS" default:"20"`
	TaskVerifyTTL     time.Duration `envconfig:"TASK_VERIFY_TTL" default:"10m"`
	BonusInterval     time.Duration `envconfig:"BONUS_INTERVAL" default:"24h"`
	GamesFile         string        `envconfig:"GAMES_FILE"`
}

// TaskVerification returns the countdown a task must be pending before it can be finalized.
func (c RewardsConfig) TaskVerification() time.Duration {
	return time.Duration(c.TaskVerifySeconds) * time.Second
}

// Identity resolution modes.
const (
	IdentityHeader     = "header"
	IdentityIP         = "ip"
	IdentityHeaderOrIP = "header_or_ip"
)

// IdentityConfig selects how the client id of a request is derived.
type IdentityConfig struct {
	Mode   string `envconfig:"IDENTITY_MODE" default:"header_or_ip"`
	Header string `envconfig:"IDENTITY_HEADER" default:"X-Client-ID"`
}

// JournalConfig holds the ledger journal location. The journal is disabled when Dir is empty.
type JournalConfig struct {
	Dir    string `envconfig:"JOURNAL_DIR"`
	Prefix string `envconfig:"JOURNAL_PREFIX" default:"ledger"`
}

// SchedulerConfig holds background job intervals.
type SchedulerConfig struct {
	VerificationSweepInterval time.Duration `envconfig:"VERIFICATION_SWEEP_INTERVAL" default:"1m"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Identity.Mode {
	case IdentityHeader, IdentityIP, IdentityHeaderOrIP:
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_MODE %q is not one of header, ip, header_or_ip", c.Identity.Mode))
	}
	if c.Identity.Mode != IdentityIP && c.Identity.Header == "" {
		errs = append(errs, errors.New("IDENTITY_HEADER must be set"))
	}
	if c.Rewards.InitialGrant < 0 {
		errs = append(errs, errors.New("INITIAL_GRANT must not be negative"))
	}
	if c.Rewards.TaskVerifySeconds < 0 {
		errs = append(errs, errors.New("TASK_VERIFY_SECONDS must not be negative"))
	}
	if c.Rewards.TaskVerifyTTL <= c.Rewards.TaskVerification() {
		errs = append(errs, errors.New("TASK_VERIFY_TTL must exceed TASK_VERIFY_SECONDS"))
	}
	if c.Rewards.BonusInterval <= 0 {
		errs = append(errs, errors.New("BONUS_INTERVAL must be positive"))
	}
	if c.Scheduler.VerificationSweepInterval <= 0 {
		errs = append(errs, errors.New("VERIFICATION_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
