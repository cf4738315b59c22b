package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/config"
	"github.com/Strob0t/settingsadmin/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
// Both /settings and /settings/ reach the collection.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.ListSettings)
		r.Post("/", h.CreateSetting)
		r.Get("/{id}", h.GetSetting)
		r.Put("/{id}", h.UpdateSetting)
		r.Delete("/{id}", h.DeleteSetting)
	})
}

// NewRouter builds the API handler with the standard middleware chain.
func NewRouter(h *Handlers, cfg config.Server, serviceName string, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware(serviceName))
	r.Use(chimw.StripSlashes)

	MountRoutes(r, h)
	return r
}
