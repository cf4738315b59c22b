package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/adapter/ws"
	"github.com/Strob0t/settingsadmin/internal/middleware"
)

// MountUI registers the page, the live-update socket and a health probe.
func MountUI(r chi.Router, page *Page, hub *ws.Hub) {
	r.Get("/", page.Show)
	r.Post("/", page.Submit)
	r.Get("/ws", hub.HandleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// NewRouter builds the UI handler with the standard middleware chain.
func NewRouter(page *Page, hub *ws.Hub, maxBody int64, serviceName string, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBody(maxBody))
	r.Use(otel.HTTPMiddleware(serviceName))

	MountUI(r, page, hub)
	return r
}
