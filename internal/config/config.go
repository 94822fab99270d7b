// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.
type Config struct {
	Env  string `env:"APP_ENV"  envDefault:"dev"`  // application environment (dev, prod)
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	Log       LogConfig
	DB        DBConfig
	Limits    SlotLimits
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Broker    BrokerConfig
}

// LogConfig selects the zap encoder and minimum level.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or console
}

// DBConfig describes the relational store.  Driver is "mysql" in
// production; "sqlite" runs against a local file and needs only SQLitePath.
type DBConfig struct {
	Driver          string        `env:"DB_DRIVER"            envDefault:"mysql"`
	User            string        `env:"DB_USER"`
	Pass            string        `env:"DB_PASS"`
	Host            string        `env:"DB_HOST"              envDefault:"127.0.0.1"`
	Port            string        `env:"DB_PORT"              envDefault:"3306"`
	Name            string        `env:"DB_NAME"              envDefault:"citypair"`
	SQLitePath      string        `env:"DB_SQLITE_PATH"       envDefault:"citypair.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"    envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// SlotLimits are the scheduling rule thresholds applied by the validator.
type SlotLimits struct {
	MaxSlotsPerAirline      int `env:"MAX_SLOTS_PER_AIRLINE"        envDefault:"4"`
	MinSlotGapMinutes       int `env:"MIN_SLOT_GAP_MINUTES"         envDefault:"30"`
	MaxSlotsPerHourAtOrigin int `env:"MAX_SLOTS_PER_HOUR_AT_ORIGIN" envDefault:"6"`
}

// BrokerConfig points at the RabbitMQ server carrying slot events.  An
// empty URL disables publishing and the consumer.
type BrokerConfig struct {
	URL   string `env:"RABBITMQ_URL"`
	Queue string `env:"SLOT_EVENTS_QUEUE" envDefault:"slot.events"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.RateLimit.Normalise()
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case "mysql":
		if c.DB.User == "" {
			return errors.New("DB_USER is required for the mysql driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Limits.MaxSlotsPerAirline < 1 || c.Limits.MaxSlotsPerHourAtOrigin < 1 || c.Limits.MinSlotGapMinutes < 0 {
		return fmt.Errorf("invalid slot limits: %+v", c.Limits)
	}
	return nil
}
