// Package config loads process configuration from the environment and an optional YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	coreseq "medseq/internal/core/sequence"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

const devJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Env      string `mapstructure:"APP_ENV" validate:"oneof=development test staging production"`
	Port     string `mapstructure:"APP_PORT" validate:"required,numeric"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile  string `mapstructure:"LOG_FILE"`

	StoreDriver    string `mapstructure:"STORE_DRIVER" validate:"oneof=postgres redis memory"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required_unless=StoreDriver memory"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS" validate:"gte=1"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS" validate:"gte=0,ltefield=DBMaxConns"`
	RedisURL       string `mapstructure:"REDIS_URL" validate:"required_if=StoreDriver redis"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	RetryMaxAttempts  int           `mapstructure:"RETRY_MAX_ATTEMPTS" validate:"gte=1,lte=20"`
	RetryBaseDelay    time.Duration `mapstructure:"RETRY_BASE_DELAY" validate:"gte=0"`
	ScanTimeout       time.Duration `mapstructure:"SCAN_TIMEOUT" validate:"gt=0"`
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL" validate:"gte=0"`

	JWTSecret string `mapstructure:"JWT_SECRET" validate:"required"`
	JWTIssuer string `mapstructure:"JWT_ISSUER" validate:"required"`

	ConfigFile string `mapstructure:"CONFIG_FILE"`

	// Mappings is the reconciliation registry, read from the "mappings" key of
	// CONFIG_FILE. Defaults to coreseq.DefaultMappings.
	Mappings []coreseq.Mapping `mapstructure:"-"`
}

var envKeys = []string{
	"APP_ENV", "APP_PORT", "LOG_LEVEL", "LOG_FILE",
	"STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "REDIS_KEY_PREFIX",
	"RETRY_MAX_ATTEMPTS", "RETRY_BASE_DELAY", "SCAN_TIMEOUT", "RECONCILE_INTERVAL",
	"JWT_SECRET", "JWT_ISSUER", "CONFIG_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 5)
	v.SetDefault("RETRY_BASE_DELAY", "100ms")
	v.SetDefault("SCAN_TIMEOUT", "30s")
	v.SetDefault("RECONCILE_INTERVAL", "0s")
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "medseq")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if v.IsSet("mappings") {
		if err := v.UnmarshalKey("mappings", &cfg.Mappings); err != nil {
			return nil, fmt.Errorf("unmarshal mappings: %w", err)
		}
	} else {
		cfg.Mappings = coreseq.DefaultMappings()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the process is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDeployed reports whether the process serves real traffic, i.e. any
// environment other than development and test.
func (c *Config) IsDeployed() bool {
	return c.Env != "development" && c.Env != "test"
}

// Validate checks field constraints and the mapping registry.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.IsDeployed() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.Env)
	}

	seen := make(map[string]bool, len(c.Mappings))
	for i, m := range c.Mappings {
		if err := validate.Struct(m); err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
		if err := m.Target.Validate(); err != nil {
			return fmt.Errorf("mapping %d (%s): %w", i, m.CounterName, err)
		}
		if seen[m.CounterName] {
			return fmt.Errorf("mapping %d: duplicate counter %q", i, m.CounterName)
		}
		seen[m.CounterName] = true
	}
	return nil
}
