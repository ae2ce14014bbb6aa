package config

import (
	"fmt"

	pkgconfig "github.com/yash24113/shofy-listsync/pkg/config"
)

// Config holds all configuration for the list-sync service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"LISTSYNC_HTTP_PORT" envDefault:"8015"`

	// Instance identity for cross-instance change filtering. A random id is
	// generated when empty.
	InstanceID string `env:"LISTSYNC_INSTANCE_ID" envDefault:""`

	// Device-local Redis (the persistent local store)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Remote list service
	CartAPIURL     string `env:"LISTSYNC_CART_API_URL" envDefault:"http://localhost:7000/api"`
	WishlistAPIURL string `env:"LISTSYNC_WISHLIST_API_URL" envDefault:"http://localhost:7000/api"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load listsync config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartAPIURL == "" || c.WishlistAPIURL == "" {
		return fmt.Errorf("remote list service URLs are required")
	}
	return nil
}
