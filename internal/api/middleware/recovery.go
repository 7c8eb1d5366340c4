package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/dotareg/internal/api/apierr"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/middleware"
)

// Recovery answers panics with the generic JSON internal error so no
// detail of the fault reaches the client
func Recovery(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, m, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// RateLimited writes the JSON 429 response
func RateLimited(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteError(w, apierr.NewRateLimitedError())
}
