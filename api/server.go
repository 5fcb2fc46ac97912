/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the browser client

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// is the CORS allowlist; "*" opens it for local development.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/report", func(r chi.Router) {
			r.Get("/summary", h.GetReportSummary)
			r.Get("/csv", h.GetReportCSV)
			r.Get("/pdf", h.GetReportPDF)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", h.ListBackups)
			r.Post("/", h.CreateBackup)
			r.Post("/import", h.ImportBackup)
			r.Delete("/{id}", h.DeleteBackup)
			r.Get("/{id}/export", h.ExportBackup)
			r.Post("/{id}/restore", h.BeginRestore)
		})

		r.Route("/restore/{sid}", func(r chi.Router) {
			r.Post("/ack", h.AckRestore)
			r.Post("/confirm", h.ConfirmRestore)
			r.Post("/commit", h.CommitRestore)
			r.Post("/abort", h.AbortRestore)
		})

		r.Post("/reset", h.Reset)
	})

	return r
}
