package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oficina-virtual/apiserver/api"
	"github.com/rs/zerolog"
)

// DocsRouter serves the OpenAPI document as YAML and JSON.
func DocsRouter(r chi.Router, log zerolog.Logger) {
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.YAML())
	})
	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := api.JSON()
		if err != nil {
			log.Error().Err(err).Msg("openapi document unavailable")
			writeError(w, http.StatusInternalServerError, "documentación no disponible")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
}
