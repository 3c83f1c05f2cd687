// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/aretw0/sticky/pkg/adapters/redis"
	"github.com/caarlos0/env/v11"
)

// Config is read once at process start.
type Config struct {
	Enabled bool `env:"SESSION_PERSISTENCE_ENABLED" envDefault:"false"`

	RedisURL      string `env:"REDIS_URL"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	MaxRetries     int           `env:"REDIS_MAX_RETRIES"     envDefault:"10"`
	RetryBase      time.Duration `env:"REDIS_RETRY_BASE"      envDefault:"50ms"`
	RetryCeiling   time.Duration `env:"REDIS_RETRY_CEILING"   envDefault:"2s"`
	HealthInterval time.Duration `env:"REDIS_HEALTH_INTERVAL" envDefault:"5s"`
	OpTimeout      time.Duration `env:"REDIS_OP_TIMEOUT"      envDefault:"2s"`

	Namespace string        `env:"SESSION_NAMESPACE" envDefault:"sticky:session"`
	TTL       time.Duration `env:"SESSION_TTL"       envDefault:"720h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.TTL)
	}
	if cfg.Namespace == "" {
		return Config{}, fmt.Errorf("SESSION_NAMESPACE must not be empty")
	}
	return cfg, nil
}

// Redis returns the connector settings.
func (c Config) Redis() redis.Config {
	return redis.Config{
		Enabled:        c.Enabled,
		URL:            c.RedisURL,
		Host:           c.RedisHost,
		Port:           c.RedisPort,
		DB:             c.RedisDB,
		Password:       c.RedisPassword,
		MaxRetries:     c.MaxRetries,
		RetryBase:      c.RetryBase,
		RetryCeiling:   c.RetryCeiling,
		HealthInterval: c.HealthInterval,
	}
}
