// Package config provides dispatcher host configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds plugin-dispatcher configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"plugin-dispatcher"`

	// Plugin identity and channel subjects (empty callsign = from bootstrap)
	Callsign      string `envconfig:"PLUGIN_CALLSIGN"`
	SubjectPrefix string `envconfig:"CHANNEL_SUBJECT_PREFIX" default:"plugin"`

	// Bootstrap
	BootstrapFile string `envconfig:"PLUGIN_BOOTSTRAP_FILE"`

	// Database (empty = subscription journal disabled)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP ops endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Per-channel inbound rate (0 = unlimited)
	ChannelRateLimit float64 `envconfig:"CHANNEL_RATE_LIMIT" default:"0"`
	ChannelRateBurst int     `envconfig:"CHANNEL_RATE_BURST" default:"20"`

	// Dispatcher behaviour
	StrictRegistration bool          `envconfig:"STRICT_REGISTRATION" default:"false"`
	LegacyUnsubscribe  bool          `envconfig:"LEGACY_UNSUBSCRIBE" default:"false"`
	HeartbeatInterval  time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables. The given env
// files (default ".env") are read first when present; variables already set
// in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, fmt.Errorf("%s - failed to load env files: %w", logPrefix, err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForServe checks required config when running the dispatcher host.
func (c *Config) ValidateForServe() error {
	var errs []error
	if c.COMMSURL == "" {
		errs = append(errs, errors.New("COMMS_URL is required for serve"))
	}
	if c.SubjectPrefix == "" || strings.ContainsAny(c.SubjectPrefix, "*> ") {
		errs = append(errs, fmt.Errorf("CHANNEL_SUBJECT_PREFIX %q is not a valid subject prefix", c.SubjectPrefix))
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d is out of range", c.HTTPPort))
	}
	if c.HealthCheckTimeout <= 0 {
		errs = append(errs, errors.New("HEALTH_CHECK_TIMEOUT must be positive"))
	}
	if c.ChannelRateLimit < 0 {
		errs = append(errs, errors.New("CHANNEL_RATE_LIMIT must not be negative"))
	}
	if c.ChannelRateLimit > 0 && c.ChannelRateBurst <= 0 {
		errs = append(errs, errors.New("CHANNEL_RATE_BURST must be positive when CHANNEL_RATE_LIMIT is set"))
	}
	if c.HeartbeatInterval < 0 {
		errs = append(errs, errors.New("HEARTBEAT_INTERVAL must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s - %w", logPrefix, errors.Join(errs...))
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// JournalEnabled reports whether subscription changes are written to the database.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}
