/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RequestLogger:  zap request logging keyed on the request id
  3. Recoverer:      Panic recovery (500 instead of crash)
  4. CORS:           Cross-origin requests for the mobile/web front-end

ROUTE GROUPS:
  /api/clients/*    Clients, transactions, archive, reminders
  /api/float/*      Float balances, adjustments, reconciliation
  /api/methods/*    Payment method registry
  /api/backup       Export / import
  /api/scenarios/*  Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Route("/api", func(r chi.Router) {
		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetClient)
				r.Put("/", h.UpdateClient)
				r.Delete("/", h.DeleteClient)
				r.Get("/balance", h.GetBalance)

				r.Post("/transactions", h.RecordTransaction)
				r.Put("/transactions/{txID}", h.UpdateTransaction)
				r.Post("/transactions/{txID}/duplicate", h.DuplicateTransaction)
				r.Post("/transactions/{txID}/notify", h.NotifyTransaction)

				r.Post("/close", h.CloseAccount)
				r.Get("/archive", h.ListArchive)
				r.Get("/archive/{invoice}", h.GetInvoice)
				r.Post("/remind", h.RemindDebt)
			})
		})

		// Float routes
		r.Route("/float", func(r chi.Router) {
			r.Get("/", h.GetFloat)
			r.Post("/adjustments", h.AdjustFloat)
			r.Post("/reconcile", h.ReconcileFloat)
		})

		// Payment method routes
		r.Route("/methods", func(r chi.Router) {
			r.Get("/", h.ListMethods)
			r.Post("/", h.CreateMethod)
			r.Post("/{id}/rename", h.RenameMethod)
			r.Put("/{id}/active", h.SetMethodActive)
		})

		// Backup routes
		r.Get("/backup", h.ExportBackup)
		r.Post("/backup", h.ImportBackup)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
