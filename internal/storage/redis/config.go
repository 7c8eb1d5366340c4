package redis

import (
	"time"

	"github.com/mcoot/dotareg/internal/config"
)

const defaultKeyPrefix = "dotareg"

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	PoolSize     int
	MinIdleConns int

	// ConnectTimeout bounds the startup ping
	ConnectTimeout time.Duration

	// KeyPrefix namespaces every key; empty means "dotareg"
	KeyPrefix string
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		ConnectTimeout: 5 * time.Second,
		KeyPrefix:      defaultKeyPrefix,
	}
}

// ConfigFrom applies the service's storage.redis settings over the defaults
func ConfigFrom(c config.RedisConfig) Config {
	cfg := DefaultConfig()
	if c.URL != "" {
		cfg.URL = c.URL
	}
	if c.PoolSize > 0 {
		cfg.PoolSize = c.PoolSize
	}
	if c.KeyPrefix != "" {
		cfg.KeyPrefix = c.KeyPrefix
	}
	return cfg
}

func (c Config) keys() keyspace {
	if c.KeyPrefix == "" {
		return defaultKeyPrefix
	}
	return keyspace(c.KeyPrefix)
}
