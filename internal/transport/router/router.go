package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/trunov/converthub/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", h.Ping)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/uploads/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Put("/{id}/complete", h.CompleteSession)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.CreateJob)
			r.Get("/{jobId}", h.GetJobStatus)

			// worker-facing write path
			r.Post("/{jobId}/results", h.RecordResult)
			r.Post("/{jobId}/logs", h.AppendLog)
			r.Put("/{jobId}/status", h.AdvanceStatus)
		})
	})

	return r
}
