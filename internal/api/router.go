package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/mcoot/dotareg/internal/api/apierr"
	"github.com/mcoot/dotareg/internal/api/handler"
	apimw "github.com/mcoot/dotareg/internal/api/middleware"
	"github.com/mcoot/dotareg/internal/api/sse"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/middleware"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/auth"
	"github.com/mcoot/dotareg/internal/services/importer"
	"github.com/mcoot/dotareg/internal/services/notify"
	"github.com/mcoot/dotareg/internal/services/players"
	"github.com/mcoot/dotareg/internal/services/registration"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger              *slog.Logger
	Metrics             *metrics.Metrics
	IDs                 idgen.Generator
	AuthService         *auth.Service
	RegistrationService *registration.Service
	PlayerService       *players.Service
	ImportService       *importer.Service
	Notifier            notify.Dispatcher
	// Events streams public status changes (optional)
	Events *sse.Broadcaster
	// RateLimit applies per client IP to login and public sign-ups. Zero disables it.
	RateLimit      rate.Limit
	RateBurst      int
	MaxUploadBytes int64
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}

	// Create handlers
	adminHandler := handler.NewAdminHandler(cfg.AuthService, cfg.Logger)
	registrationHandler := handler.NewRegistrationHandler(cfg.RegistrationService, cfg.PlayerService, cfg.Events, cfg.Logger)
	sessionHandler := handler.NewSessionHandler(cfg.RegistrationService, cfg.Events, cfg.Logger)
	notificationHandler := handler.NewNotificationHandler(cfg.Notifier, cfg.Logger)

	// Create middleware
	authMiddleware := apimw.Auth(cfg.AuthService)
	limited := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.RateLimit > 0 {
		limiter := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)
		rl := middleware.RateLimit(limiter, apimw.RateLimited)
		limited = func(h http.HandlerFunc) http.Handler { return rl(h) }
	}

	r.Use(middleware.RequestID(cfg.IDs))
	r.Use(apimw.Recovery(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	// Public registration routes
	api.HandleFunc("/registration/status", registrationHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/registration/events", registrationHandler.Events).Methods(http.MethodGet)
	api.Handle("/registration/players", limited(registrationHandler.Register)).Methods(http.MethodPost)

	// Admin login is the only unauthenticated admin route
	api.Handle("/admin/login", limited(adminHandler.Login)).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware)
	admin.HandleFunc("/logout", adminHandler.Logout).Methods(http.MethodPost)
	admin.HandleFunc("/session", adminHandler.Session).Methods(http.MethodGet)

	lists := map[string]model.PlayerList{
		"/players":    model.ListRegistrations,
		"/masterlist": model.ListMasterlist,
	}
	for prefix, list := range lists {
		h := handler.NewPlayerHandler(list, cfg.PlayerService, cfg.ImportService, cfg.RegistrationService, cfg.Events, cfg.Logger, cfg.MaxUploadBytes)
		admin.HandleFunc(prefix, h.List).Methods(http.MethodGet)
		admin.HandleFunc(prefix, h.Create).Methods(http.MethodPost)
		admin.HandleFunc(prefix, h.DeleteAll).Methods(http.MethodDelete)
		admin.HandleFunc(prefix+"/import", h.Import).Methods(http.MethodPost)
		admin.HandleFunc(prefix+"/import/file", h.ImportFile).Methods(http.MethodPost)
		admin.HandleFunc(prefix+"/{id}", h.Get).Methods(http.MethodGet)
		admin.HandleFunc(prefix+"/{id}", h.Update).Methods(http.MethodPatch)
		admin.HandleFunc(prefix+"/{id}", h.Delete).Methods(http.MethodDelete)
	}

	admin.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	admin.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	admin.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods(http.MethodGet)
	admin.HandleFunc("/sessions/{id}/activate", sessionHandler.Activate).Methods(http.MethodPost)
	admin.HandleFunc("/sessions/{id}/close", sessionHandler.Close).Methods(http.MethodPost)
	admin.HandleFunc("/sessions/{id}/reopen", sessionHandler.Reopen).Methods(http.MethodPost)

	admin.HandleFunc("/notifications", notificationHandler.Send).Methods(http.MethodPost)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewNotFoundError())
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewMethodNotAllowedError())
}
