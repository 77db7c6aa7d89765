package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig bundles the dependencies of the API router.
type RouterConfig struct {
	Handler      *Handler
	TokenHandler *TokenHandler
	AgentHandler *AgentHandler

	// Static Bearer auth for the interactive surface. Agent routes
	// carry their own per-token credentials and bypass this.
	AuthEnabled bool
	AuthToken   string

	// SSEHandler, if non-nil, is mounted at GET /events inside the
	// interactive auth group.
	SSEHandler http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Interactive surface.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.AuthToken))

		r.Get("/notes", cfg.Handler.ListNotes)
		r.Post("/notes", cfg.Handler.CreateNote)
		r.Get("/notes/{id}", cfg.Handler.GetNote)
		r.Put("/notes/{id}", cfg.Handler.UpdateNote)
		r.Delete("/notes/{id}", cfg.Handler.DeleteNote)

		r.Post("/edits", cfg.Handler.RunEdits)
		r.Post("/lint", cfg.Handler.Lint)

		r.Post("/tokens", cfg.TokenHandler.Create)
		r.Get("/tokens", cfg.TokenHandler.List)
		r.Delete("/tokens/{id}", cfg.TokenHandler.Revoke)

		if cfg.SSEHandler != nil {
			r.Get("/events", cfg.SSEHandler.ServeHTTP)
		}
	})

	// Agent surface.
	r.Group(func(r chi.Router) {
		r.Get("/agent/notes/{id}", cfg.AgentHandler.ReadNote)
		r.Post("/agent/notes/{id}", cfg.AgentHandler.WriteNote)
	})

	return r
}
