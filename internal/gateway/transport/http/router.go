package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the webhook ingestion routes and the internal integration
// lifecycle routes. A nil integrations handler leaves the internal surface
// unmounted.
func NewRouter(webhooks *WebhookHandler, integrations *IntegrationHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/webhooks/{integrationID}", func(r chi.Router) {
		r.Get("/", webhooks.Verify)
		r.Post("/", webhooks.Receive)
	})

	if integrations != nil {
		r.Route("/internal/integrations", func(r chi.Router) {
			r.Post("/", integrations.Connect)
			r.Delete("/{integrationID}", integrations.Disconnect)
		})
	}

	return r
}
