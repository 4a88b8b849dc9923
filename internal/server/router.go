// Package server assembles the storefront's HTTP routes.
package server

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"medallion-storefront/internal/handlers"
	"medallion-storefront/internal/middleware"
)

// Handlers are the endpoint groups the router mounts.
type Handlers struct {
	Cart             *handlers.CartHandler
	Checkout         *handlers.CheckoutHandler
	Fundraisers      *handlers.FundraiserHandler
	Webhooks         *handlers.WebhookHandler
	Events           *handlers.EventsHandler
	Health           *handlers.HealthHandler
	Admin            *handlers.AdminHandler
	AdminFundraisers *handlers.AdminFundraiserHandler
	Settings         *handlers.AdminSettingsHandler
	Inventory        *handlers.AdminInventoryHandler
	Analytics        *handlers.AnalyticsHandler
}

type Options struct {
	AdminKey       string
	AllowedOrigins []string
	TrustedProxies []netip.Prefix
	Limiter        middleware.Limiter
	UploadDir      string
}

func NewRouter(h Handlers, opts Options, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(opts.TrustedProxies))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.AllowedOrigins)))

	r.Get("/healthz", h.Health.Healthz)

	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir))))
	}

	// signed by the provider, never rate limited
	r.Post("/webhooks/stripe", h.Webhooks.Stripe)

	r.Route("/api", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, log))
		}

		r.Get("/settings", h.Settings.Get)
		r.Get("/events", h.Events.Stream)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{itemID}", h.Cart.UpdateQuantity)
			r.Delete("/items/{itemID}", h.Cart.RemoveItem)
		})

		r.Post("/checkout", h.Checkout.CartCheckout)
		r.Post("/checkout/buy-now", h.Checkout.BuyNow)

		r.Route("/fundraisers", func(r chi.Router) {
			r.Get("/", h.Fundraisers.List)
			r.Get("/{slug}", h.Fundraisers.Get)
			r.Get("/{slug}/donation-preview", h.Fundraisers.DonationPreview)
			r.Post("/{slug}/checkout", h.Fundraisers.Checkout)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminKey(opts.AdminKey, log))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Admin.ListOrders)
			r.Get("/export.csv", h.Analytics.ExportOrders)
			r.Get("/number/{number}", h.Admin.GetOrderByNumber)
			r.Get("/{id}", h.Admin.GetOrder)
			r.Put("/{id}/status", h.Admin.UpdateOrderStatus)
		})

		r.Route("/fundraisers", func(r chi.Router) {
			r.Get("/", h.AdminFundraisers.List)
			r.Post("/", h.AdminFundraisers.Create)
			r.Post("/images", h.AdminFundraisers.UploadImage)
			r.Get("/{id}", h.AdminFundraisers.Get)
			r.Patch("/{id}", h.AdminFundraisers.Update)
			r.Put("/{id}/active", h.AdminFundraisers.SetActive)
		})

		r.Get("/settings", h.Settings.Get)
		r.Put("/settings", h.Settings.Update)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.Inventory.List)
			r.Post("/", h.Inventory.Create)
			r.Post("/{id}/adjust", h.Inventory.Adjust)
		})

		r.Get("/analytics/sales", h.Analytics.Sales)
	})

	return r
}
