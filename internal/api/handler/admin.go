package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcoot/dotareg/internal/api/middleware"
	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/services/auth"
)

// AdminHandler handles admin login and session endpoints
type AdminHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *auth.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("username and password are required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	response.OK(w, response.LoginResponseFromSession(session))
}

// Logout handles POST /api/v1/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	if err := h.authService.InvalidateSession(r.Context(), session.ID); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   middleware.SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	response.OK(w, response.SuccessResponse{Success: true, Message: "logged out"})
}

// Session handles GET /api/v1/admin/session
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	response.OK(w, response.SessionCheckResponse{
		Success:   true,
		ExpiresAt: session.ExpiresAt,
		User:      response.AdminUserFromSession(session),
	})
}
