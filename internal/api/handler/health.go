package handler

import (
	"net/http"

	"github.com/mcoot/dotareg/internal/api/response"
)

// Health handles GET /api/v1/health
func Health(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, response.HealthResponse{Status: "ok"})
}
