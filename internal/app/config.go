package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session backends.
const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN enables the postgres user directory and login audit trail.
	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	SessionBackend       string        `envconfig:"SESSION_BACKEND" default:"redis"`
	SessionTimeout       time.Duration `envconfig:"SESSION_TIMEOUT" default:"8h"`
	SessionCheckInterval time.Duration `envconfig:"SESSION_CHECK_INTERVAL" default:"1m"`
	SessionStorageTTL    time.Duration `envconfig:"SESSION_STORAGE_TTL" default:"24h"`
	SessionCookie        string        `envconfig:"SESSION_COOKIE" default:"campus_scope"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	DirectoryFile string `envconfig:"DIRECTORY_FILE" default:"config/directory.yaml"`
	LandingPath   string `envconfig:"LANDING_PATH" default:"/"`

	RateLimit      int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT_PER_MINUTE" default:"10"`

	AuditQueueEnabled  bool `envconfig:"AUDIT_QUEUE_ENABLED" default:"true"`
	AuditRetentionDays int  `envconfig:"AUDIT_RETENTION_DAYS" default:"180"`
	WorkerConcurrency  int  `envconfig:"WORKER_CONCURRENCY" default:"5"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	switch c.SessionBackend {
	case SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unsupported session backend %q", c.SessionBackend)
	}
	if c.SessionTimeout <= 0 || c.SessionCheckInterval <= 0 {
		return errors.New("session timeout and check interval must be positive")
	}
	if c.SessionStorageTTL < c.SessionTimeout {
		return errors.New("session storage ttl must cover the session timeout")
	}
	if c.AuditRetentionDays <= 0 {
		return errors.New("audit retention must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AuditEnabled reports whether login activity is shipped to the audit trail.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.AuditQueueEnabled && c.PGDSN != "" && c.RedisAddr != ""
}
