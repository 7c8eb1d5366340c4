package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/mcoot/dotareg/internal/api"
	"github.com/mcoot/dotareg/internal/api/sse"
	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/dependencies/clock"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/auth"
	"github.com/mcoot/dotareg/internal/services/importer"
	"github.com/mcoot/dotareg/internal/services/notify"
	"github.com/mcoot/dotareg/internal/services/players"
	"github.com/mcoot/dotareg/internal/services/registration"
	"github.com/mcoot/dotareg/internal/storage"
	"github.com/mcoot/dotareg/internal/storage/memory"
	pgstorage "github.com/mcoot/dotareg/internal/storage/postgres"
	redisstorage "github.com/mcoot/dotareg/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypePostgres = config.StoragePostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	IDs      idgen.Generator
	Notifier notify.Dispatcher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// Services
	AuthService         *auth.Service
	RegistrationService *registration.Service
	PlayerService       *players.Service
	ImportService       *importer.Service

	// Events streams public status changes to browsers
	Events *sse.Broadcaster

	closeStorage func() error
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// NotifyConfig holds the webhook settings (optional)
	// If no webhook URL is set, notifications are dropped
	NotifyConfig notify.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Metrics is the metrics registry (optional)
	// If nil, a fresh registry is created
	Metrics *metrics.Metrics
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres connection settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// ConfigFrom maps the service configuration onto factory settings
func ConfigFrom(c *config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.ConfigFrom(c.Storage.Redis)

	pgCfg := pgstorage.DefaultConfig()
	if c.Storage.Postgres.DSN != "" {
		pgCfg.DSN = c.Storage.Postgres.DSN
	}
	if c.Storage.Postgres.MaxOpenConns > 0 {
		pgCfg.MaxOpenConns = c.Storage.Postgres.MaxOpenConns
	}
	pgCfg.AutoMigrate = c.Storage.Postgres.AutoMigrate

	return Config{
		AuthConfig: auth.Config{SessionDuration: c.Auth.SessionDuration},
		NotifyConfig: notify.Config{
			WebhookURL: c.Notify.WebhookURL,
			Username:   c.Notify.Username,
			Timeout:    c.Notify.Timeout,
		},
		Logger:         logger,
		StorageType:    c.Storage.Type,
		RedisConfig:    &redisCfg,
		PostgresConfig: &pgCfg,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	// Create storage based on type
	var (
		store        storage.Storage
		closeStorage func() error
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closeStorage = redisStore, redisStore.Close
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store, closeStorage = pgStore, pgStore.Close
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}

	notifier, err := notify.New(cfg.NotifyConfig, logger, m)
	if err != nil {
		if closeStorage != nil {
			_ = closeStorage()
		}
		return nil, err
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(store, clock.New(), idgen.New(), notifier, m, authCfg, logger)
	app.closeStorage = closeStorage
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	ids idgen.Generator,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	// Create services
	authService := auth.New(store, clk, ids, logger, authCfg)
	registrationService := registration.New(store, clk, ids, logger)
	playerService := players.New(store, registrationService, notifier, clk, ids, logger, m)
	importService := importer.New(store, clk, ids, logger, m)

	hub := sse.NewHub(logger)
	go hub.Run()

	return &App{
		Storage:             store,
		Clock:               clk,
		IDs:                 ids,
		Notifier:            notifier,
		Metrics:             m,
		Logger:              logger,
		AuthService:         authService,
		RegistrationService: registrationService,
		PlayerService:       playerService,
		ImportService:       importService,
		Events:              sse.NewBroadcaster(hub, registrationService, logger),
	}
}

// RouterConfig returns the API router settings for this app
func (a *App) RouterConfig(limit rate.Limit, burst int, maxUploadBytes int64) api.RouterConfig {
	return api.RouterConfig{
		Logger:              a.Logger,
		Metrics:             a.Metrics,
		IDs:                 a.IDs,
		AuthService:         a.AuthService,
		RegistrationService: a.RegistrationService,
		PlayerService:       a.PlayerService,
		ImportService:       a.ImportService,
		Notifier:            a.Notifier,
		Events:              a.Events,
		RateLimit:           limit,
		RateBurst:           burst,
		MaxUploadBytes:      maxUploadBytes,
	}
}

// SeedAdmins ensures every configured admin account exists with its
// configured password and role
func (a *App) SeedAdmins(ctx context.Context, admins []config.AdminConfig) error {
	for _, admin := range admins {
		if _, err := a.AuthService.EnsureUser(ctx, auth.Credentials{
			Username:     admin.Username,
			Password:     admin.Password,
			PasswordHash: admin.PasswordHash,
			Role:         model.AdminRole(admin.Role),
		}); err != nil {
			return fmt.Errorf("seeding admin %q: %w", admin.Username, err)
		}
	}
	return nil
}

// Close disconnects event streams and releases storage connections
func (a *App) Close() error {
	if a.Events != nil {
		a.Events.Hub().Close()
	}
	if a.closeStorage == nil {
		return nil
	}
	return a.closeStorage()
}
