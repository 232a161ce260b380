package http

import (
	"net/http"

	"github.com/hookrelay/hookrelay/pkg/logger"
)

// RootHandler serves the service-level endpoints
type RootHandler struct {
	version string
	logger  logger.Logger
}

// NewRootHandler creates a new root handler
func NewRootHandler(version string, logger logger.Logger) *RootHandler {
	return &RootHandler{
		version: version,
		logger:  logger,
	}
}

// RegisterRoutes registers the root HTTP endpoints
func (h *RootHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *RootHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}
