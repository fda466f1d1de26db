package config

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig connects the optional event bus. Events are only published, so
// the client needs a small pool and short command timeouts. When neither URL
// nor host/port are set, events are discarded.
type RedisConfig struct {
	// URL (redis:// or rediss://) takes precedence over the components.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	// Channel is the Pub/Sub channel domain events are published to.
	Channel string `envconfig:"CHANNEL" default:"petlife:events" validate:"required"`

	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// PoolSize bounds concurrent PUBLISH calls; one per in-flight event.
	PoolSize       int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	DialTimeout    time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	CommandTimeout time.Duration `envconfig:"COMMAND_TIMEOUT" default:"3s"`

	// Startup ping: the process refuses to start on an unreachable bus that
	// was explicitly configured.
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"5" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`

	// Delivery retries belong to the asynchronous notifier; the client itself
	// never retries so one failed PUBLISH is not retried at two layers.
	PublishMaxRetries int           `envconfig:"PUBLISH_MAX_RETRIES" default:"3" validate:"min=0"`
	PublishBaseDelay  time.Duration `envconfig:"PUBLISH_BASE_DELAY" default:"100ms"`
	PublishTimeout    time.Duration `envconfig:"PUBLISH_TIMEOUT" default:"20s" validate:"gt=0"`
}

// Address returns host:port, or the URL when one is set.
func (c *RedisConfig) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Validate checks the connection settings. Production requires a password
// and TLS when the components are used.
func (c *RedisConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validateRedisURL(c.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		return nil
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if c.Password == "" {
			return fmt.Errorf("redis password is required in production environment")
		}
		if err := validatePasswordStrength(c.Password, "redis", environment); err != nil {
			return err
		}
		if !c.TLSEnabled {
			return fmt.Errorf("redis TLS must be enabled in production environment")
		}
	}

	return nil
}

// IsConfigured reports whether the bus has enough settings to connect.
func (c *RedisConfig) IsConfigured() bool {
	if c.URL != "" {
		return true
	}
	return c.Host != "" && c.Port != ""
}

// IsRequested returns true if any connection setting was provided, even a
// partial one. Partial settings must fail validation instead of being ignored.
func (c *RedisConfig) IsRequested() bool {
	return c.URL != "" || c.Host != "" || c.Port != ""
}

// validateRedisURL requires a redis or rediss URL with a host and lets
// go-redis parse the rest, so the client never sees a URL it would reject.
func validateRedisURL(redisURL string) error {
	if _, err := parseAndValidateURL(redisURL, []string{"redis", "rediss"}); err != nil {
		return err
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return err
	}
	if opts.DB < 0 || opts.DB > 15 {
		return fmt.Errorf("database number must be between 0 and 15, got %d", opts.DB)
	}
	return nil
}
