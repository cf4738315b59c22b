// Package http implements the settings REST API on chi.
package http

import (
	"net/http"

	"github.com/Strob0t/settingsadmin/internal/service"
)

// DefaultBodyLimit caps create and update bodies when no limit is configured.
const DefaultBodyLimit int64 = 1 << 20

// Handlers holds the services the REST endpoints delegate to.
type Handlers struct {
	Settings  *service.SettingsService
	BodyLimit int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return DefaultBodyLimit
}

// Root handles GET /
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings Management System API"})
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
