package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-oms/meridian-oms/internal/auth"
	"github.com/meridian-oms/meridian-oms/internal/billing/invoices"
	"github.com/meridian-oms/meridian-oms/internal/billing/payments"
	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/masterdata/products"
	"github.com/meridian-oms/meridian-oms/internal/observability"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/customorders"
	"github.com/meridian-oms/meridian-oms/internal/sales/orders"
	"github.com/meridian-oms/meridian-oms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     *auth.Middleware
	AuthHandler        *auth.Handler
	ProductsHandler    *products.Handler
	MaterialsHandler   *inventory.Handler
	CustomersHandler   *customers.Handler
	OrdersHandler      *orders.Handler
	CustomOrderHandler *customorders.Handler
	InvoicesHandler    *invoices.Handler
	PaymentsHandler    *payments.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", params.AuthHandler.MountRoutes)

	guard := params.AuthMiddleware
	staff := guard.RequireRole(auth.RoleAdmin, auth.RoleCashier, auth.RoleSupervisor)
	backOffice := guard.RequireRole(auth.RoleAdmin, auth.RoleSupervisor)
	adminOnly := guard.RequireRole(auth.RoleAdmin)
	customerOnly := guard.RequireRole(auth.RoleCustomer)

	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAuth)

		// The storefront browses the catalog; writes are back office.
		r.Route("/products", func(r chi.Router) {
			r.Get("/", params.ProductsHandler.List)
			r.Get("/{id}", params.ProductsHandler.Show)
			r.With(backOffice).Post("/", params.ProductsHandler.Create)
			r.With(backOffice).Put("/{id}", params.ProductsHandler.Update)
		})

		r.Route("/materials", func(r chi.Router) {
			r.Use(backOffice)
			params.MaterialsHandler.MountRoutes(r)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Use(staff)
			params.CustomersHandler.MountRoutes(r)
		})

		r.Route("/orders", params.OrdersHandler.MountRoutes)

		r.Route("/custom-orders", func(r chi.Router) {
			params.CustomOrderHandler.MountRoutes(r)
			r.With(adminOnly).Put("/{id}/force-status", params.CustomOrderHandler.ForceStatus)
		})

		// Approval belongs to the customer; everything else is readable by
		// any authenticated role.
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", params.InvoicesHandler.List)
			r.Get("/outstanding", params.InvoicesHandler.Outstanding)
			r.Get("/{id}", params.InvoicesHandler.Show)
			r.With(customerOnly).Post("/{id}/approve", params.InvoicesHandler.Approve)
			r.With(customerOnly).Post("/{id}/cancel", params.InvoicesHandler.CancelApproval)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(guard.RequireRole(auth.RoleAdmin, auth.RoleCashier, auth.RoleCustomer))
			params.PaymentsHandler.MountRoutes(r)
		})

		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(adminOnly)
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
