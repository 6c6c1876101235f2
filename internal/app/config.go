package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// KV backends accepted by KV_BACKEND.
const (
	KVBackendRedis    = "redis"
	KVBackendPostgres = "postgres"
	KVBackendMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	PGDSN      string `envconfig:"PG_DSN" default:""`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`
	RedisAddr  string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	KVBackend  string `envconfig:"KV_BACKEND" default:"redis"`

	MarketplaceAPIURL   string        `envconfig:"MARKETPLACE_API_URL" required:"true"`
	MarketplaceAPIToken string        `envconfig:"MARKETPLACE_API_TOKEN"`
	MarketplaceTimeout  time.Duration `envconfig:"MARKETPLACE_TIMEOUT" default:"15s"`

	CatalogTTL         time.Duration `envconfig:"CATALOG_TTL" default:"5m"`
	ShuffleInterval    time.Duration `envconfig:"SHUFFLE_INTERVAL" default:"10s"`
	NoticeInterval     time.Duration `envconfig:"NOTICE_INTERVAL" default:"20s"`
	RateCardPath       string        `envconfig:"RATE_CARD_PATH"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	LeadSector         string        `envconfig:"LEAD_SECTOR" default:"moving"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.MarketplaceAPIURL) == "" {
		errs = append(errs, errors.New("marketplace api url must be provided"))
	}
	switch c.KVBackend {
	case KVBackendRedis, KVBackendMemory:
	case KVBackendPostgres:
		if c.PGDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required for the postgres kv backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown KV_BACKEND %q", c.KVBackend))
	}
	if c.ShuffleInterval <= 0 {
		errs = append(errs, errors.New("SHUFFLE_INTERVAL must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
