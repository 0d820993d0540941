package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/prompt"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *transcriptservice.Service, sessions *prompt.Sessions, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Transcripts.
	r.Get("/transcripts", h.ListTranscripts)
	r.Post("/transcripts", h.CreateTranscript)
	r.Get("/transcripts/{id}", h.GetTranscript)
	r.Get("/transcripts/{id}/{kind}", h.GetArtifact)

	// Search.
	r.Get("/search", h.Search)

	// Prompt builder; state is per browser session.
	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(sessions))
		r.Get("/prompt/template", h.GetTemplate)
		r.Put("/prompt/template", h.PutTemplate)
		r.Delete("/prompt/template", h.ResetTemplate)
		r.Get("/prompt/last", h.LastPrompt)
		r.Post("/prompt", h.BuildPrompt)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
