package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal/auth"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/report"
	"github.com/frahmantamala/equipment-tracker/internal/transport/middleware"
	"github.com/frahmantamala/equipment-tracker/internal/transport/swagger"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Auth      *auth.Handler
	RBAC      *auth.RBACAuthorization
	User      *user.Handler
	Inventory *inventory.Handler
	Report    *report.Handler
	Health    *HealthHandler
}

type Options struct {
	AllowedOrigins string
	// OpenAPISpec is served at /openapi.yml when set.
	OpenAPISpec []byte
	// RequestValidator, when set, guards every /api route.
	RequestValidator func(http.Handler) http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))

	if len(opts.OpenAPISpec) > 0 {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(opts.OpenAPISpec)
		})
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	router.Route("/api", func(r chi.Router) {
		if opts.RequestValidator != nil {
			r.Use(opts.RequestValidator)
		}

		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
		})
		r.Post("/users/register", h.User.Register)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/me", h.User.GetCurrentUser)
				ur.With(h.RBAC.RequireManager()).Get("/", h.User.ListUsers)
				ur.Group(func(admin chi.Router) {
					admin.Use(h.RBAC.RequireAdmin())
					admin.Put("/{id}", h.User.UpdateUser)
					admin.Delete("/{id}", h.User.DeleteUser)
				})
			})

			pr.Route("/items", func(ir chi.Router) {
				ir.Get("/", h.Inventory.GetItems)
				ir.Get("/stats/summary", h.Inventory.GetStatsSummary)
				ir.Get("/{id}", h.Inventory.GetItem)
				ir.Get("/{id}/checkouts", h.Inventory.GetItemCheckouts)

				ir.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.RequireManager())
					mr.Post("/", h.Inventory.CreateItem)
					mr.Put("/{id}", h.Inventory.UpdateItem)
					mr.Post("/{id}/soft-delete", h.Inventory.SoftDeleteItem)
					mr.Post("/{id}/restore", h.Inventory.RestoreItem)
				})

				ir.With(h.RBAC.RequireAdmin()).Delete("/{id}", h.Inventory.DeleteItem)
			})
			pr.With(h.RBAC.RequireManager()).Get("/deleted-items", h.Inventory.GetDeletedItems)

			pr.Route("/checkouts", func(cr chi.Router) {
				cr.Get("/checked-out-items", h.Inventory.GetCheckedOutItems)
				cr.Get("/overdue/{days}", h.Inventory.GetOverdueItems)
				cr.Post("/checkout", h.Inventory.CheckOut)
				cr.Post("/checkin/{itemId}", h.Inventory.CheckIn)
			})

			pr.Route("/reports", func(rr chi.Router) {
				rr.Post("/", h.Report.SubmitReport)
				rr.Get("/mine", h.Report.ListMyReports)

				rr.Group(func(mr chi.Router) {
					mr.Use(h.RBAC.RequireManager())
					mr.Get("/", h.Report.ListReports)
					mr.Get("/{id}", h.Report.GetReport)
					mr.Patch("/{id}/resolve", h.Report.ResolveReport)
					mr.Patch("/{id}/reopen", h.Report.ReopenReport)
				})
			})
		})
	})
}
