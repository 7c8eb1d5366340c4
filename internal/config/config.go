// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config is the full service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Notify    NotifyConfig    `yaml:"notify"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Discord   DiscordConfig   `yaml:"discord"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxUploadBytes bounds import request bodies
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string         `yaml:"type"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL       string `yaml:"url"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// AuthConfig holds admin session settings and the accounts seeded at startup
type AuthConfig struct {
	SessionDuration time.Duration `yaml:"session_duration"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	Admins          []AdminConfig `yaml:"admins"`
}

// AdminConfig is an admin account ensured at startup
type AdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// NotifyConfig holds the Discord webhook settings
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Username   string        `yaml:"username"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RateLimitConfig holds per-IP limits for login and public submissions
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DiscordConfig holds the Discord bot settings
type DiscordConfig struct {
	Addr      string `yaml:"addr"`
	AppID     string `yaml:"app_id"`
	PublicKey string `yaml:"public_key"`
	BotToken  string `yaml:"bot_token"`
	GuildID   string `yaml:"guild_id"`
	// APIURL is the base URL of the registration API the bot calls
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  5 << 20,
		},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Type: StorageMemory, Redis: RedisConfig{PoolSize: 10}, Postgres: PostgresConfig{MaxOpenConns: 10, AutoMigrate: true}},
		Auth: AuthConfig{
			SessionDuration: 24 * time.Hour,
			SweepInterval:   10 * time.Minute,
		},
		Notify: NotifyConfig{
			Username: "Dota Registration",
			Timeout:  5 * time.Second,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 5},
		Discord: DiscordConfig{
			Addr:   ":8081",
			APIURL: "http://localhost:8080",
		},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides cfg with any set environment variables
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(&cfg.Server.Addr, "DOTAREG_ADDR")
	str(&cfg.Log.Level, "DOTAREG_LOG_LEVEL")
	str(&cfg.Storage.Type, "DOTAREG_STORAGE", "STORAGE_TYPE")
	str(&cfg.Storage.Redis.URL, "REDIS_URL")
	str(&cfg.Storage.Postgres.DSN, "DATABASE_URL")
	dur(&cfg.Auth.SessionDuration, "DOTAREG_SESSION_DURATION")
	str(&cfg.Notify.WebhookURL, "DOTAREG_WEBHOOK_URL", "DISCORD_WEBHOOK_URL")
	dur(&cfg.Notify.Timeout, "DOTAREG_WEBHOOK_TIMEOUT")

	if v, ok := lookup("DOTAREG_RATE_LIMIT_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid DOTAREG_RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}

	var admin AdminConfig
	str(&admin.Username, "DOTAREG_ADMIN_USERNAME")
	str(&admin.Password, "DOTAREG_ADMIN_PASSWORD")
	str(&admin.PasswordHash, "DOTAREG_ADMIN_PASSWORD_HASH")
	if admin.Username != "" {
		cfg.Auth.Admins = upsertAdmin(cfg.Auth.Admins, admin)
	}

	str(&cfg.Discord.Addr, "DISCORD_BOT_ADDR")
	str(&cfg.Discord.AppID, "DISCORD_APP_ID")
	str(&cfg.Discord.PublicKey, "DISCORD_PUBLIC_KEY")
	str(&cfg.Discord.BotToken, "DISCORD_BOT_TOKEN")
	str(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	str(&cfg.Discord.APIURL, "DOTAREG_API_URL")
	str(&cfg.Discord.Username, "DOTAREG_BOT_USERNAME")
	str(&cfg.Discord.Password, "DOTAREG_BOT_PASSWORD")

	return errors.Join(errs...)
}

func upsertAdmin(admins []AdminConfig, admin AdminConfig) []AdminConfig {
	for i, a := range admins {
		if strings.EqualFold(a.Username, admin.Username) {
			admin.Role = a.Role
			admins[i] = admin
			return admins
		}
	}
	return append(admins, admin)
}

// Validate checks for settings the service cannot start without
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			errs = append(errs, errors.New("storage.redis.url (REDIS_URL) is required for redis storage"))
		}
	case StoragePostgres:
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn (DATABASE_URL) is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}
	for i, a := range c.Auth.Admins {
		if a.Username == "" || (a.Password == "" && a.PasswordHash == "") {
			errs = append(errs, fmt.Errorf("auth.admins[%d] needs a username and a password or password_hash", i))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured log level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
