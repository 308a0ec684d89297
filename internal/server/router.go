package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/provider"
	"github.com/sevigo/review-relay/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware, the
// per-provider webhook route and the health and metrics endpoints.
func NewRouter(registry *provider.Registry, dedup core.DedupStore, producer core.TaskProducer, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	webhookHandler := handler.NewWebhookHandler(registry, dedup, producer, logger)
	r.Post("/webhook/{provider}", webhookHandler.Handle)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
