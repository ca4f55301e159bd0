package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Public access - No limit"})
	})

	s.router.With(Limit(s.secure, "api")).Get("/api/secure", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "success",
			"data":   "This is protected production-grade data.",
		})
	})

	s.router.With(Limit(s.heavy, "heavy")).Get("/api/heavy", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Expensive computation successful"})
	})

	s.router.Route("/payments", func(r chi.Router) {
		r.Use(TieredLimit(s.tiered, "payments", s.metrics))
		r.Post("/charge", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "charged"})
		})
	})

	s.router.Route("/marketing", func(r chi.Router) {
		r.Use(TieredLimit(s.tiered, "marketing", s.metrics))
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}
