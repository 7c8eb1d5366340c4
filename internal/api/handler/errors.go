package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/dotareg/internal/api/apierr"
	"github.com/mcoot/dotareg/internal/middleware"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// fail writes err to the client. Faults are logged with full detail here
// because the client only ever sees a generic message for them.
func fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, err)
}
