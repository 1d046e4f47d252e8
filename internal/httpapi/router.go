package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/conjugo/gateway/internal/metrics"
	"github.com/conjugo/gateway/pkg/ratelimit"
)

// NewRouter wires the public endpoints and the per-user API surface.
func NewRouter(h *Handler, m *metrics.Metrics, serverLimiter *ratelimit.Limiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "conjugo-gateway"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// Per-user routes
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Use(ServerRateLimit(serverLimiter))
		r.Post("/v1/evaluate", h.HandleEvaluate)
		r.Get("/v1/usage", h.HandleUsage)
		r.Post("/v1/usage/reset", h.HandleUsageReset)
		r.Get("/v1/limits", h.HandleLimits)
		r.Put("/v1/budget", h.HandleSetBudget)
	})

	return r
}
