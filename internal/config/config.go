// Package config provides centralized configuration management for the loader.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Loader   LoaderConfig
	Status   StatusConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoaderConfig holds load cycle settings.
type LoaderConfig struct {
	// InputDir is where the input CSV files are looked up (default: .)
	InputDir string `env:"LOADER_INPUT_DIR" default:"."`

	// AuditModule tags every audit_log record (default: GO_LOADER)
	AuditModule string `env:"LOADER_AUDIT_MODULE" default:"GO_LOADER"`

	// Schedule is a cron expression or @every descriptor (default: @every 24h)
	Schedule string `env:"LOADER_SCHEDULE" default:"@every 24h"`

	// RunOnce runs a single cycle and exits (default: false)
	RunOnce bool `env:"LOADER_RUN_ONCE" default:"false"`

	// ProgressEvery logs bind values on row 1 and every Nth row, 0 disables (default: 20)
	ProgressEvery int `env:"LOADER_PROGRESS_EVERY" default:"20"`
}

// StatusConfig holds settings of the read-only status HTTP server.
type StatusConfig struct {
	// Addr is the listen address, empty disables the server
	Addr string `env:"STATUS_ADDR"`

	// ShutdownTimeout bounds graceful shutdown of the status server (default: 10s)
	ShutdownTimeout time.Duration `env:"STATUS_SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Enabled reports whether the status server should run.
func (c *StatusConfig) Enabled() bool {
	return c.Addr != ""
}
