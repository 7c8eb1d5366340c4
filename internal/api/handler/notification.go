package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/services/notify"
)

// NotificationHandler sends admin-authored webhook messages
type NotificationHandler struct {
	notifier notify.Dispatcher
	logger   *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifier notify.Dispatcher, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// Send handles POST /api/v1/admin/notifications. Delivery is attempted once.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req request.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteError(w, notify.ErrEmptyMessage)
		return
	}

	if err := h.notifier.Send(r.Context(), notify.Message{Content: req.Content}); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.SuccessResponse{Success: true, Message: "notification sent"})
}
