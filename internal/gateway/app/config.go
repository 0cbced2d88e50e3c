package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for the gateway.
type Config struct {
	// Routes is the proxy table in its "/prefix=url[,auth]" form, entries
	// separated by ";". See proxy.ParseRoutes.
	Routes string `env:"GATEWAY_ROUTES" envDefault:"/api/v1/auth=http://localhost:8081"`

	// AccessSecret must match the auth service's ACCESS_TOKEN_SECRET: the
	// gateway verifies access tokens, it never mints them.
	AccessSecret string `env:"ACCESS_TOKEN_SECRET"`
	Issuer       string `env:"AUTH_ISSUER" envDefault:"ripple-auth"`

	// AssertionSecret, when set, enables the signed X-Gateway-Assertion
	// header so upstreams can verify the request passed through here.
	AssertionSecret string `env:"GATEWAY_ASSERTION_SECRET"`

	RateLimitMax    int64         `env:"RATE_LIMIT_MAX" envDefault:"25"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"5m"`

	// RateLimitFailOpen decides what happens when the counter store is
	// unreachable: allow traffic (availability) or reject it (protection).
	RateLimitFailOpen bool `env:"RATE_LIMIT_FAIL_OPEN" envDefault:"true"`

	// RedisAddr selects the shared counter store. Empty means the
	// process-local memory store, which is fine for a single instance.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig reads configuration from environment variables, loading a
// .env file first if one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if c.Routes == "" {
		return errors.New("GATEWAY_ROUTES is required")
	}
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}
