/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/cards/*          Card management, program status, overlap checks, cap progress
  /api/transactions/*   Purchase history with calculation snapshots
  /api/simulate         Evaluate a draft purchase against one card
  /api/rank             Evaluate a draft purchase against every card
  /api/health           Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Card routes
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.SaveCard)
			r.Get("/{id}", h.GetCard)
			r.Delete("/{id}", h.DeleteCard)
			r.Get("/{id}/programs", h.CardPrograms)
			r.Get("/{id}/overlaps", h.CardOverlaps)
			r.Get("/{id}/progress", h.CardProgress)
			r.Post("/{id}/recalculate", h.RecalculateCard)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.RecordTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Planning routes
		r.Post("/simulate", h.Simulate)
		r.Post("/rank", h.Rank)

		r.Get("/health", h.Health)
	})

	return r
}
