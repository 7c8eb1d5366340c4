package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/auth"
	"github.com/mcoot/dotareg/internal/services/importer"
	"github.com/mcoot/dotareg/internal/services/notify"
	"github.com/mcoot/dotareg/internal/services/parser"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeRegistrationClosed   = "REGISTRATION_CLOSED"
	CodeRegistrationFull     = "REGISTRATION_FULL"
	CodeNoActiveRegistration = "NO_ACTIVE_REGISTRATION"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeNotFound             = "NOT_FOUND"
	CodeDuplicatePlayer      = "DUPLICATE_PLAYER"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeNotificationsOff     = "NOTIFICATIONS_DISABLED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with a code and message
type httpError struct {
	status  int
	code    string
	message string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: he.code, Message: he.message})
}

// Status returns the HTTP status an error is reported with
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. Input errors keep their
// message so callers see which field or rule failed; anything unrecognized
// is reported generically.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Input errors
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, CodeValidationFailed, err.Error()}
	case errors.Is(err, model.ErrInvalidRegistrationSession),
		errors.Is(err, model.ErrUnknownList),
		errors.Is(err, parser.ErrEmptyInput),
		errors.Is(err, parser.ErrInvalidJSON),
		errors.Is(err, parser.ErrUnknownFormat),
		errors.Is(err, parser.ErrInvalidXLSX),
		errors.Is(err, importer.ErrNoRows),
		errors.Is(err, notify.ErrEmptyMessage),
		errors.Is(err, auth.ErrInvalidUser):
		return &httpError{http.StatusBadRequest, CodeInvalidRequest, err.Error()}
	case errors.Is(err, notify.ErrNotConfigured):
		return &httpError{http.StatusBadRequest, CodeNotificationsOff, "No webhook is configured"}

	// Auth errors are uniform: no distinction between missing and expired
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password"}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, CodeUnauthorized, "Authentication required"}

	// Registration window
	case errors.Is(err, model.ErrRegistrationFull):
		return &httpError{http.StatusForbidden, CodeRegistrationFull, "Registration is full"}
	case errors.Is(err, model.ErrRegistrationClosed):
		return &httpError{http.StatusForbidden, CodeRegistrationClosed, "Registration is not open"}

	// Not found
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, CodePlayerNotFound, "Player not found"}
	case errors.Is(err, model.ErrRegistrationSessionNotFound):
		return &httpError{http.StatusNotFound, CodeSessionNotFound, "Registration session not found"}
	case errors.Is(err, model.ErrNoActiveRegistration):
		return &httpError{http.StatusNotFound, CodeNoActiveRegistration, "No active registration session"}

	// Conflicts
	case errors.Is(err, model.ErrDuplicatePlayer):
		return &httpError{http.StatusConflict, CodeDuplicatePlayer, "A player with this name or Dota 2 ID is already registered"}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, CodeUsernameExists, "Username already exists"}

	default:
		return &httpError{http.StatusInternalServerError, CodeInternalError, "Internal server error"}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, CodeInvalidRequest, message}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, CodeUnauthorized, "Authentication required"}
}

// NewNotFoundError creates a not found error for unknown routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, CodeNotFound, "Not found"}
}

// NewMethodNotAllowedError creates a wrong method error
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed"}
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, CodeRateLimited, "Too many requests, slow down"}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, CodeInternalError, "Internal server error"}
}
