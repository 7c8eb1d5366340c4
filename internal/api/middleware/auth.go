package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/dotareg/internal/api/apierr"
	"github.com/mcoot/dotareg/internal/middleware"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/auth"
)

// SessionHeader carries the admin session id
const SessionHeader = "X-Session-ID"

// SessionCookie is the cookie alternative to SessionHeader
const SessionCookie = "session"

type contextKey string

const sessionContextKey contextKey = "session"

// Auth creates authentication middleware. Missing, unknown and expired
// sessions all get the same 401.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			middleware.AddLogAttrs(r.Context(), slog.String("admin", session.Username))
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the session token from the request
func ExtractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(SessionHeader)); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the admin session from the request context
func GetSession(ctx context.Context) *model.AdminSession {
	session, _ := ctx.Value(sessionContextKey).(*model.AdminSession)
	return session
}

// MustGetSession returns the admin session or panics
func MustGetSession(ctx context.Context) *model.AdminSession {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session
}
