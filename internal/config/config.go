// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type API struct {
	Port     string `envconfig:"PORT" default:"8081"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Store       string        `envconfig:"STORE" default:"memory"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	RedisAddr   string        `envconfig:"REDIS_ADDR"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	AMQPURL     string        `envconfig:"AMQP_URL"`

	ConsulAddr  string `envconfig:"CONSUL_ADDR"`
	ServiceHost string `envconfig:"SERVICE_HOST" default:"127.0.0.1"`

	MetricsToken     string `envconfig:"METRICS_TOKEN"`
	WriteLimitPerMin int    `envconfig:"WRITE_LIMIT_PER_MIN" default:"0"`
	TrustProxy       bool   `envconfig:"TRUST_PROXY" default:"false"`
}

type Web struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	APIURL     string        `envconfig:"API_URL" default:"http://localhost:8081"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"3s"`

	MetricsToken string `envconfig:"METRICS_TOKEN"`
}

func LoadAPI() (API, error) {
	var c API
	if err := envconfig.Process("", &c); err != nil {
		return API{}, err
	}
	return c, c.Validate()
}

func (c API) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("config: unknown STORE %q", c.Store)
	}
	if c.WriteLimitPerMin < 0 {
		return fmt.Errorf("config: WRITE_LIMIT_PER_MIN must not be negative")
	}
	return nil
}

func LoadWeb() (Web, error) {
	var c Web
	if err := envconfig.Process("", &c); err != nil {
		return Web{}, err
	}
	if c.APIURL == "" {
		return Web{}, fmt.Errorf("config: API_URL is required")
	}
	return c, nil
}
