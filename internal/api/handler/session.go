package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/api/sse"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/registration"
)

// SessionHandler handles registration session administration
type SessionHandler struct {
	registration *registration.Service
	events       *sse.Broadcaster
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(reg *registration.Service, events *sse.Broadcaster, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registration: reg,
		events:       events,
		logger:       logger,
	}
}

// List handles GET /api/v1/admin/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.registration.ListSessions(r.Context())
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	out := make([]response.RegistrationSession, 0, len(sessions))
	for _, s := range sessions {
		status, err := h.registration.Status(r.Context(), s.ID)
		if err != nil {
			fail(h.logger, w, r, err)
			return
		}
		out = append(out, response.RegistrationSessionFromStatus(status))
	}

	response.OK(w, response.RegistrationSessionListResponse{Success: true, Sessions: out})
}

// Create handles POST /api/v1/admin/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, err := h.registration.CreateSession(r.Context(), registration.Params{
		Title:      req.Title,
		StartTime:  req.StartTime,
		Expiry:     req.Expiry,
		MaxPlayers: req.MaxPlayers,
	}, req.Activate)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	if req.Activate {
		h.events.StatusChanged(r.Context())
	}

	h.writeSession(w, r, session.ID)
}

// Get handles GET /api/v1/admin/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeSession(w, r, sessionID(r))
}

// Activate handles POST /api/v1/admin/sessions/{id}/activate
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registration.Activate(r.Context(), sessionID(r)); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.events.StatusChanged(r.Context())
	h.writeSession(w, r, sessionID(r))
}

// Close handles POST /api/v1/admin/sessions/{id}/close
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registration.Close(r.Context(), sessionID(r)); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.events.StatusChanged(r.Context())
	h.writeSession(w, r, sessionID(r))
}

// Reopen handles POST /api/v1/admin/sessions/{id}/reopen
func (h *SessionHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	var req request.ReopenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	_, err := h.registration.Reopen(r.Context(), sessionID(r), registration.ReopenParams{
		StartTime:  req.StartTime,
		Expiry:     req.Expiry,
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.events.StatusChanged(r.Context())
	h.writeSession(w, r, sessionID(r))
}

// writeSession responds with the freshly evaluated session
func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, id model.RegistrationSessionID) {
	status, err := h.registration.Status(r.Context(), id)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.RegistrationSessionResponse{Success: true, Session: response.RegistrationSessionFromStatus(status)})
}

func sessionID(r *http.Request) model.RegistrationSessionID {
	return model.RegistrationSessionID(mux.Vars(r)["id"])
}
