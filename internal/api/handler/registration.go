package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcoot/dotareg/internal/api/apierr"
	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/api/sse"
	"github.com/mcoot/dotareg/internal/middleware"
	"github.com/mcoot/dotareg/internal/services/players"
	"github.com/mcoot/dotareg/internal/services/registration"
)

// RegistrationHandler handles the public registration endpoints
type RegistrationHandler struct {
	registration *registration.Service
	players      *players.Service
	events       *sse.Broadcaster
	logger       *slog.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(reg *registration.Service, ps *players.Service, events *sse.Broadcaster, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registration: reg,
		players:      ps,
		events:       events,
		logger:       logger,
	}
}

// Status handles GET /api/v1/registration/status
func (h *RegistrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.registration.PublicStatus(r.Context())
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.RegistrationStatusFromModel(status))
}

// Register handles POST /api/v1/registration/players
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	player, err := h.players.Register(r.Context(), players.Submission{
		Name:    string(req.Name),
		Dota2ID: string(req.Dota2ID),
		MMR:     req.MMRValue(),
		Notes:   string(req.Notes),
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.events.StatusChanged(r.Context())

	response.OK(w, response.PlayerResponse{Success: true, Player: response.PlayerFromModel(player)})
}

// Events handles GET /api/v1/registration/events. The current status is sent
// on connect and again after every change.
func (h *RegistrationHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		WriteError(w, apierr.NewNotFoundError())
		return
	}

	initial, err := h.events.StatusMessage(r.Context())
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	sse.ServeSSE(w, r, h.events.Hub(), middleware.RequestIDFromContext(r.Context()), initial)
}
