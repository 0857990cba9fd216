package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/snapledger/reconcile/internal/api/handlers"
	"github.com/snapledger/reconcile/internal/api/middleware"
	"github.com/snapledger/reconcile/internal/auth"
	"github.com/snapledger/reconcile/internal/config"
)

// Deps collects everything the HTTP surface needs. Construction happens in
// cmd/api; the router only wires routes to handlers.
type Deps struct {
	Health       *handlers.HealthHandler
	Documents    *handlers.DocumentHandler
	Transactions *handlers.TransactionHandler
	Suggestions  *handlers.SuggestionHandler
	Admin        *handlers.AdminHandler
	JWT          *auth.JWTMiddleware
}

func NewRouter(cfg *config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.NewRateLimiter(20, 40).Limit)

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.JWT.Authenticate)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", d.Documents.Create)
			r.Get("/", d.Documents.List)
			r.Get("/{id}", d.Documents.Get)
			r.Post("/{id}/process", d.Documents.Process)
			r.Get("/{id}/suggestions", d.Suggestions.ListForDocument)
			r.Post("/{id}/confirm", d.Suggestions.Confirm)
			r.Post("/{id}/suggestions/{suggestionID}/decline", d.Suggestions.Decline)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", d.Transactions.Create)
			r.Get("/", d.Transactions.List)
			r.Get("/{id}", d.Transactions.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/rescore", d.Admin.Rescore)
			r.Post("/suggestions/expire", d.Admin.ExpireSuggestions)
			r.Get("/audit-logs", d.Admin.AuditLogs)
		})
	})

	return r
}
