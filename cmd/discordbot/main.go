package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"

	"github.com/mcoot/dotareg/internal/api"
	"github.com/mcoot/dotareg/internal/apiclient"
	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/discord"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/middleware"
)

func main() {
	cfg, err := config.Load(os.Getenv("DOTAREG_CONFIG"))
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	dc := cfg.Discord
	if dc.PublicKey == "" || dc.Username == "" || dc.Password == "" {
		logger.Error("discord.public_key, discord.username and discord.password are required")
		os.Exit(1)
	}

	client := discord.NewClient(dc.APIURL, dc.Username, dc.Password, apiclient.WithLogger(logger))
	bot, err := discord.New(client, dc.PublicKey, logger)
	if err != nil {
		logger.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Publishing commands needs the bot token; without it the endpoint still serves
	if dc.BotToken != "" && dc.AppID != "" {
		session, err := discordgo.New("Bot " + dc.BotToken)
		if err != nil {
			logger.Error("failed to create discord session", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := discord.RegisterCommands(session, dc.AppID, dc.GuildID); err != nil {
			logger.Error("failed to register commands", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("registered slash commands", slog.String("guild_id", dc.GuildID))
	} else {
		logger.Warn("discord.bot_token or discord.app_id not set; skipping command registration")
	}

	m := metrics.New()
	router := mux.NewRouter()
	router.Use(middleware.RequestID(idgen.New()))
	router.Use(middleware.Recovery(logger, m, func(w http.ResponseWriter, r *http.Request, err any) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Metrics(m))
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	router.Handle("/interactions", bot).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	serverConfig := api.ServerConfigFrom(cfg.Server)
	serverConfig.Addr = dc.Addr
	server := api.NewServer(router, serverConfig, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("discord bot starting",
		slog.String("addr", dc.Addr),
		slog.String("api_url", dc.APIURL),
	)
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("discord bot stopped")
}
