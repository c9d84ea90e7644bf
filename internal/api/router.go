package api

import (
	"encoding/json"
	"net/http"

	"github.com/agentflow/agentflow/internal/api/handlers"
	"github.com/agentflow/agentflow/internal/api/middleware"
	"github.com/agentflow/agentflow/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Agents
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Route("/{agentId}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Put("/", h.UpdateAgent)
				r.Delete("/", h.DeleteAgent)
				r.Post("/chat", h.ChatAgent)
				r.Post("/compile", h.CompileAgent)
				r.Post("/apply-template", h.ApplyTemplate)
				r.Post("/apply-fix", h.ApplyFix)
			})
		})

		// Prompt modules
		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", h.ListPrompts)
			r.Post("/", h.CreatePrompt)
			r.Route("/{promptId}", func(r chi.Router) {
				r.Get("/", h.GetPrompt)
				r.Put("/", h.UpdatePrompt)
				r.Delete("/", h.DeletePrompt)
			})
		})

		// Intent routers
		r.Route("/routers", func(r chi.Router) {
			r.Get("/", h.ListRouters)
			r.Post("/", h.CreateRouter)
			r.Route("/{routerId}", func(r chi.Router) {
				r.Get("/", h.GetRouter)
				r.Put("/", h.UpdateRouter)
				r.Delete("/", h.DeleteRouter)
				r.Post("/route", h.RouteMessage)
			})
		})

		// Test suites
		r.Route("/suites", func(r chi.Router) {
			r.Get("/", h.ListSuites)
			r.Post("/", h.CreateSuite)
			r.Route("/{suiteId}", func(r chi.Router) {
				r.Get("/", h.GetSuite)
				r.Put("/", h.UpdateSuite)
				r.Delete("/", h.DeleteSuite)
				r.Post("/run", h.RunSuite)
				r.Post("/suggest-fix", h.SuggestFix)
			})
		})

		// Built-in agent templates
		r.Get("/templates", h.ListTemplates)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "agentflow-control-plane",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "agentflow-control-plane",
		})
	}
}
