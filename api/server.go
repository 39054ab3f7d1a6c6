/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the chi router, middleware stack and route definitions. This is
	the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. RequestID:  Unique ID per request, echoed in error logs
 2. Logger:     Request logging
 3. Recoverer:  Panic recovery (500 instead of crash)
 4. CORS:       Cross-origin requests for a local frontend

ROUTE GROUPS:

	/api/health           Liveness
	/api/accounts/*       Accounts and balance recalculation
	/api/categories/*     Categories
	/api/transactions/*   Transaction lifecycle
	/api/recurring/*      Recurring templates and execution
	/api/budgets/*        Budgets and progress
	/api/stats/*          Summary, trend, category breakdown

SECURITY NOTE:

	No authentication. The server is meant to listen on localhost for a single
	user.

SEE ALSO:
  - handlers.go, recurring_handlers.go, reports.go: Handler implementations
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

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Post("/{id}/recalculate", h.RecalculateBalance)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/void", h.VoidTransaction)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", h.ListRecurring)
			r.Post("/", h.CreateRecurring)
			r.Get("/due", h.DueRecurring)
			r.Post("/run-due", h.RunDue)
			r.Get("/runner", h.RunnerStatus)
			r.Get("/{id}", h.GetRecurring)
			r.Put("/{id}", h.UpdateRecurring)
			r.Delete("/{id}", h.DeleteRecurring)
			r.Post("/{id}/execute", h.ExecuteRecurring)
			r.Post("/{id}/skip", h.SkipRecurring)
			r.Post("/{id}/active", h.SetRecurringActive)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)
			r.Get("/progress", h.AllBudgetProgress)
			r.Delete("/{id}", h.DeleteBudget)
			r.Post("/{id}/active", h.SetBudgetActive)
			r.Get("/{id}/progress", h.BudgetProgress)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/summary", h.Summary)
			r.Get("/trend", h.Trend)
			r.Get("/categories", h.CategoryBreakdown)
		})
	})

	return r
}
