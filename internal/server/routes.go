package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes mounts every handler on a new router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)

	r.Route("/telegram", func(r chi.Router) {
		r.Get("/set-webhook", h.HandleSetWebhook)
		r.Get("/remove-webhook", h.HandleRemoveWebhook)
		r.Post("/webhook", h.HandleWebhook)
		r.Post("/send-message", h.HandleSendMessage)
	})

	if h.AttachmentsDir != "" {
		files := http.StripPrefix("/attachments/", http.FileServer(http.Dir(h.AttachmentsDir)))
		r.Get("/attachments/*", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "*") == "" {
				http.NotFound(w, r)
				return
			}
			files.ServeHTTP(w, r)
		})
	}

	return r
}
