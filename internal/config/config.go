// Package config loads the application configuration from the environment.
//
// Variables are read with the MAGNETITE_ prefix (a `.env` file is loaded
// first when present), mapped into structs through koanf and validated with
// go-playground/validator. Nested keys use "." in the variable name:
//
//	MAGNETITE_DATABASE.HOST -> database.host -> Config.Database.Host
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MAGNETITE_"

// Config is the root configuration object for the application.
//
// Cache, Actor and Observability are optional; LoadConfig seeds them with
// their defaults before reading the environment.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Cache         *CacheConfig         `koanf:"cache"`
	Actor         *ActorConfig         `koanf:"actor"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server. Timeouts are seconds.
type ServerConfig struct {
	Port         string `koanf:"port" validate:"required"`
	ReadTimeout  int    `koanf:"read_timeout" validate:"required"`
	WriteTimeout int    `koanf:"write_timeout" validate:"required"`
	IdleTimeout  int    `koanf:"idle_timeout" validate:"required"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// DatabaseConfig selects the store backend and carries its connection
// parameters. Host, user and friends are only required for postgres; Path
// only for sqlite.
type DatabaseConfig struct {
	Driver          string `koanf:"driver" validate:"required,oneof=postgres sqlite"`
	Host            string `koanf:"host" validate:"required_if=Driver postgres"`
	Port            int    `koanf:"port" validate:"required_if=Driver postgres"`
	User            string `koanf:"user" validate:"required_if=Driver postgres"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required_if=Driver postgres"`
	SSLMode         string `koanf:"ssl_mode"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
	Path            string `koanf:"path" validate:"required_if=Driver sqlite"`
}

// CacheConfig tunes the TTL cache in front of the store.
type CacheConfig struct {
	// TTL is how long an entry lives after it was last written.
	TTL time.Duration `koanf:"ttl"`

	// SweepInterval is how often expired entries are removed. It is also the
	// upper bound on how stale a cached read can be past its TTL.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ActorConfig tunes the content service's command loop.
type ActorConfig struct {
	// QueueCapacity bounds the inbound command queue. Submitters block while
	// it is full.
	QueueCapacity int `koanf:"queue_capacity"`

	// StoreTimeout bounds a single store call. Zero disables the bound.
	StoreTimeout time.Duration `koanf:"store_timeout"`
}

// DefaultCacheConfig returns the cache defaults: one minute TTL swept every
// second.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		TTL:           time.Minute,
		SweepInterval: time.Second,
	}
}

// DefaultActorConfig returns the actor defaults.
func DefaultActorConfig() *ActorConfig {
	return &ActorConfig{
		QueueCapacity: 10,
		StoreTimeout:  5 * time.Second,
	}
}

// Validate rejects cache settings that would disable expiry.
func (c *CacheConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.TTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// Validate rejects an unbuffered or negative queue.
func (c *ActorConfig) Validate() error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("actor queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if c.StoreTimeout < 0 {
		return fmt.Errorf("actor store_timeout must be non-negative, got %s", c.StoreTimeout)
	}
	return nil
}

// LoadConfig reads MAGNETITE_* variables, unmarshals and validates them, and
// fills in defaults for the optional blocks.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Optional blocks start from their defaults so a partially configured
	// block only overrides the keys that were set.
	mainConfig := &Config{
		Cache:         DefaultCacheConfig(),
		Actor:         DefaultActorConfig(),
		Observability: DefaultObservabilityConfig(),
	}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Database.SSLMode == "" {
		mainConfig.Database.SSLMode = "disable"
	}

	// Service name and environment are not user-configurable.
	mainConfig.Observability.ServiceName = "magnetite"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Cache.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	if err := mainConfig.Actor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid actor config: %w", err)
	}
	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
