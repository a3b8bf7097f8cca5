package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oficina-virtual/apiserver/internal/analytics"
)

// AnalyticsHandler serves the mock procedures dataset.
type AnalyticsHandler struct {
	generator *analytics.Generator
}

func NewAnalyticsHandler(generator *analytics.Generator) *AnalyticsHandler {
	return &AnalyticsHandler{generator: generator}
}

// AnalyticsRouter registers analytics routes on the given router.
func AnalyticsRouter(r chi.Router, generator *analytics.Generator) {
	handler := NewAnalyticsHandler(generator)

	r.Get("/", handler.GetAnalytics)
}

func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.generator.Snapshot())
}
