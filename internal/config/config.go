package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings, read from MASTERY_* environment
// variables.
type Config struct {
	// DBPath overrides the default sqlite location.
	DBPath string `env:"MASTERY_DB"`

	// HTTPAddr is the listen address for `atomastery serve`.
	HTTPAddr string `env:"MASTERY_HTTP_ADDR" envDefault:":8080"`

	// LogMode is "development" or "production".
	LogMode string `env:"LOG_MODE" envDefault:"development"`
	// LogHashSalt is mixed into hashed user identifiers in logs.
	LogHashSalt string `env:"LOG_HASH_SALT"`

	// RedisAddr enables the distributed key lock when set. Leave empty for
	// single-instance deployments; an in-process lock is used instead.
	RedisAddr     string        `env:"MASTERY_REDIS_ADDR"`
	RedisPassword string        `env:"MASTERY_REDIS_PASSWORD"`
	LockTTL       time.Duration `env:"MASTERY_LOCK_TTL" envDefault:"5s"`

	// AMQPURL enables publishing mastery-achieved events when set.
	AMQPURL      string `env:"MASTERY_AMQP_URL"`
	AMQPExchange string `env:"MASTERY_AMQP_EXCHANGE" envDefault:"mastery.events"`

	// StructureCacheTTL controls how long lesson structures stay cached.
	StructureCacheTTL time.Duration `env:"MASTERY_STRUCTURE_CACHE_TTL" envDefault:"1m"`

	// MaxUpdateAttempts bounds compare-and-swap retries per update.
	MaxUpdateAttempts uint `env:"MASTERY_MAX_UPDATE_ATTEMPTS" envDefault:"5"`
	// StoreTimeout bounds a single read-modify-write cycle.
	StoreTimeout time.Duration `env:"MASTERY_STORE_TIMEOUT" envDefault:"5s"`

	// TraceStdout installs a stdout span exporter (debugging aid).
	TraceStdout bool `env:"MASTERY_TRACE_STDOUT" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxUpdateAttempts == 0 {
		cfg.MaxUpdateAttempts = 1
	}
	return cfg, nil
}
