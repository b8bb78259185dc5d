package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Postgres MCP server.
// All configuration can be loaded from YAML and overridden by environment
// variables; a pure-environment deployment (no file) is fully supported.
type Config struct {
	Database     DatabaseConfig    `yaml:"database"`
	Transactions TransactionConfig `yaml:"transactions"`
	Monitor      MonitorConfig     `yaml:"monitor"`
	API          APIConfig         `yaml:"api"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// DatabaseConfig contains PostgreSQL connection pool settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (postgres://...).
	// Always set via the DATABASE_URL environment variable in production.
	URL string `yaml:"url"`

	// MaxConnections is the pool's connection ceiling.
	MaxConnections int `yaml:"max_connections"`

	// IdleTimeoutMS is how long an idle pooled connection is kept (milliseconds).
	IdleTimeoutMS int `yaml:"idle_timeout_ms"`

	// StatementTimeoutMS is the server-side statement_timeout applied to every
	// connection (milliseconds). This is the only per-statement cutoff; the
	// transaction monitor enforces the wall-clock transaction timeout separately.
	StatementTimeoutMS int `yaml:"statement_timeout_ms"`
}

// TransactionConfig contains held-open transaction settings.
type TransactionConfig struct {
	// TimeoutMS is the wall-clock age after which the monitor force-rolls-back
	// an unresolved transaction (milliseconds).
	TimeoutMS int `yaml:"timeout_ms"`

	// MaxConcurrent is the ceiling on simultaneously held transactions.
	// Requests beyond the ceiling fail immediately rather than queueing.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// MonitorConfig contains background sweep settings.
type MonitorConfig struct {
	// Enabled turns the transaction monitor on or off.
	Enabled bool `yaml:"enabled"`

	// IntervalMS is the sweep interval (milliseconds).
	IntervalMS int `yaml:"interval_ms"`
}

// APIConfig contains the optional admin HTTP server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from an optional YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults; skipped when path is empty)
//  3. Environment variables (override file values)
//
// The environment variable names match the original deployment surface:
// DATABASE_URL, TRANSACTION_TIMEOUT_MS, MONITOR_INTERVAL_MS,
// ENABLE_TRANSACTION_MONITOR, MAX_CONCURRENT_TRANSACTIONS, PG_MAX_CONNECTIONS,
// PG_IDLE_TIMEOUT_MS, PG_STATEMENT_TIMEOUT_MS.
//
// Parameters:
//   - path: Path to the YAML configuration file ("" to use env/defaults only)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConnections:     20,
			IdleTimeoutMS:      30000,
			StatementTimeoutMS: 30000,
		},
		Transactions: TransactionConfig{
			TimeoutMS:     15000,
			MaxConcurrent: 10,
		},
		Monitor: MonitorConfig{
			Enabled:    true,
			IntervalMS: 5000,
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8432,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	envInt("PG_MAX_CONNECTIONS", &cfg.Database.MaxConnections)
	envInt("PG_IDLE_TIMEOUT_MS", &cfg.Database.IdleTimeoutMS)
	envInt("PG_STATEMENT_TIMEOUT_MS", &cfg.Database.StatementTimeoutMS)

	// Transactions
	envInt("TRANSACTION_TIMEOUT_MS", &cfg.Transactions.TimeoutMS)
	envInt("MAX_CONCURRENT_TRANSACTIONS", &cfg.Transactions.MaxConcurrent)

	// Monitor
	envBool("ENABLE_TRANSACTION_MONITOR", &cfg.Monitor.Enabled)
	envInt("MONITOR_INTERVAL_MS", &cfg.Monitor.IntervalMS)

	// Admin API
	envBool("PGMCP_API_ENABLED", &cfg.API.Enabled)
	if v := os.Getenv("PGMCP_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	envInt("PGMCP_API_PORT", &cfg.API.Port)

	// Logging
	if v := os.Getenv("PGMCP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PGMCP_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// envInt overrides dst with the named environment variable when it parses as
// an integer. Unset or malformed values leave dst untouched.
func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// envBool overrides dst with the named environment variable when it parses as
// a boolean ("true", "false", "1", "0", ...).
func envBool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "database.url is required (set DATABASE_URL environment variable)")
	}
	if c.Database.MaxConnections < 1 {
		errs = append(errs, "database.max_connections must be at least 1")
	}
	if c.Database.StatementTimeoutMS < 0 {
		errs = append(errs, "database.statement_timeout_ms must not be negative")
	}

	if c.Transactions.TimeoutMS < 1 {
		errs = append(errs, "transactions.timeout_ms must be positive")
	}
	if c.Transactions.MaxConcurrent < 1 {
		errs = append(errs, "transactions.max_concurrent must be at least 1")
	}
	if c.Transactions.MaxConcurrent > c.Database.MaxConnections {
		errs = append(errs, "transactions.max_concurrent must not exceed database.max_connections")
	}

	if c.Monitor.Enabled && c.Monitor.IntervalMS < 1 {
		errs = append(errs, "monitor.interval_ms must be positive when the monitor is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TransactionTimeout returns the held-transaction timeout as a Duration.
func (c *Config) TransactionTimeout() time.Duration {
	return time.Duration(c.Transactions.TimeoutMS) * time.Millisecond
}

// MonitorInterval returns the monitor sweep interval as a Duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMS) * time.Millisecond
}

// IdleTimeout returns the pool idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Database.IdleTimeoutMS) * time.Millisecond
}

// StatementTimeout returns the per-statement execution timeout as a Duration.
func (c *Config) StatementTimeout() time.Duration {
	return time.Duration(c.Database.StatementTimeoutMS) * time.Millisecond
}
