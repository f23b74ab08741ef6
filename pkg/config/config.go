// Package config provides configuration management for ga2.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Validation functions may write user-facing warnings via
// gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > ga2.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in ga2.yaml)
//
// # Environment Variables
//
// Use GA2_ prefix with underscores for nesting:
//
//	GA2_DATABASE_HOST=localhost
//	GA2_DATABASE_PORT=5432
//	GA2_LOG_LEVEL=info
//	GA2_JOBS_NUMBER=8
package config

import (
	"runtime"
)

// Config represents the complete ga2 configuration.
type Config struct {
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Import contains settings specific to the import command.
	Import ImportConfig `mapstructure:"import" yaml:"import"`

	// Notify contains notification delivery settings used by sync.
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for the per-alert
	// phase of sync. Default value is the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string `mapstructure:"-" yaml:"-"`
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// ImportConfig contains settings specific to the import command.
type ImportConfig struct {
	// BatchSize defines the number of occurrence rows accumulated before a
	// batch transaction is committed. Larger batches are faster but use
	// more memory and make crash-recovery reruns lose more progress.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// NotifyConfig contains notification delivery settings.
type NotifyConfig struct {
	// URLs is a list of shoutrrr service URLs (smtp://..., telegram://...).
	// Empty list means notifications are logged instead of delivered.
	URLs []string `mapstructure:"urls" yaml:"urls"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json' or 'text'.
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "ga2",
			SSLMode:  "disable",
		},
		Import: ImportConfig{
			// Matches the batch boundary of the occurrence bulk-insert path.
			BatchSize: 10_000,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}

	return res
}
