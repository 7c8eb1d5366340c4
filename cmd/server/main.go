package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/mcoot/dotareg/internal/api"
	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/factory"
)

func main() {
	// Load configuration; DOTAREG_CONFIG points at an optional YAML file
	cfg, err := config.Load(os.Getenv("DOTAREG_CONFIG"))
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factory.ConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	if err := app.SeedAdmins(ctx, cfg.Auth.Admins); err != nil {
		logger.Error("failed to seed admin users", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(cfg.Auth.Admins) == 0 {
		logger.Warn("no admin users configured; the admin API is unusable")
	}

	go app.AuthService.RunSweeper(ctx, cfg.Auth.SweepInterval)

	// Create API router
	router := api.NewRouter(app.RouterConfig(
		rate.Limit(cfg.RateLimit.RequestsPerSecond),
		cfg.RateLimit.Burst,
		cfg.Server.MaxUploadBytes,
	))

	server := api.NewServer(router, api.ServerConfigFrom(cfg.Server), logger)
	server.OnShutdown(app.Events.Hub().Close)

	logger.Info("server starting",
		slog.String("addr", cfg.Server.Addr),
		slog.String("storage", cfg.Storage.Type),
	)
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
